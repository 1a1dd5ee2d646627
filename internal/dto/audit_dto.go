package dto

type AuditFilter struct {
	TableName string `form:"table_name"`
	RecordID  string `form:"record_id" validate:"omitempty,uuid"`
	Actor     string `form:"actor"`
	Page      int    `form:"page,default=1"    validate:"min=1"`
	Limit     int    `form:"limit,default=100" validate:"min=1,max=500"`
}
