package service_test

import (
	"encoding/json"
	"testing"

	"stitchbill/internal/dto"
	"stitchbill/internal/model"
	"stitchbill/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditRecord_SnapshotsOldAndNew(t *testing.T) {
	f := newFixture(decimal.Zero)
	id := uuid.New()

	err := f.audit.Record(ctx, nil, service.AuditEntry{
		Table:    "contracts",
		RecordID: id,
		Action:   model.AuditUpdate,
		Old:      map[string]string{"status": "draft"},
		New:      map[string]string{"status": "active"},
		Actor:    "ayesha",
	})
	require.NoError(t, err)

	list, err := f.audit.List(ctx, dto.AuditFilter{RecordID: id.String(), Page: 1, Limit: 100})
	require.NoError(t, err)
	require.Equal(t, int64(1), list.Total)

	row := list.Data[0]
	assert.Equal(t, "contracts", row.EntityTable)
	assert.Equal(t, "ayesha", row.Actor)
	var old, cur map[string]string
	require.NoError(t, json.Unmarshal([]byte(row.OldValues), &old))
	require.NoError(t, json.Unmarshal([]byte(row.NewValues), &cur))
	assert.Equal(t, "draft", old["status"])
	assert.Equal(t, "active", cur["status"])
}

func TestAuditList_ByActor(t *testing.T) {
	f := newFixture(decimal.Zero)
	f.seedFloor("0.10")

	_, err := f.machines.Create(ctx, "someone-else", dto.CreateMachineRequest{Code: "m-02", Name: "Barudan"})
	require.NoError(t, err)

	list, err := f.audit.List(ctx, dto.AuditFilter{Actor: "someone-else", Page: 1, Limit: 100})
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "machines", list.Data[0].EntityTable)
	assert.Equal(t, model.AuditInsert, list.Data[0].Action)
}

func TestMachineCreate_CodeIsUnique(t *testing.T) {
	f := newFixture(decimal.Zero)

	m, err := f.machines.Create(ctx, actor, dto.CreateMachineRequest{Code: " m-07 ", Name: "ZSK"})
	require.NoError(t, err)
	assert.Equal(t, "M-07", m.Code)
	assert.True(t, m.Active)

	_, err = f.machines.Create(ctx, actor, dto.CreateMachineRequest{Code: "M-07", Name: "ZSK 2"})
	assert.ErrorIs(t, err, service.ErrDuplicateMachineCode)

	_, err = f.machines.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, service.ErrMachineNotFound)
}
