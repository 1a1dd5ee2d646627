package dto

type CreateMachineRequest struct {
	Code string `json:"code" validate:"required,min=1,max=30"`
	Name string `json:"name" validate:"required,min=2,max=120"`
}

type MachineFilter struct {
	IncludeInactive bool `form:"include_inactive"`
}
