package service_test

import (
	"errors"
	"testing"
	"time"

	"stitchbill/internal/dto"
	"stitchbill/internal/model"
	"stitchbill/internal/service"
	"stitchbill/internal/worker"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const asOf = "2024-03-31"

// approvedProduction bills 10000 stitches at 0.10 and approves the record:
// production value 1000.00.
func approvedProduction(t *testing.T, f *fixture) *model.Contract {
	t.Helper()
	c, m, d := f.seedFloor("0.10")
	f.record(m, d, prodDate, model.ShiftDay, 10000)
	resp, err := f.bill(c, prodDate, model.ShiftDay)
	require.NoError(t, err)
	_, err = f.billing.Approve(ctx, "boss", uuid.MustParse(resp.Records[0].ID))
	require.NoError(t, err)
	return c
}

func ship(f *fixture, c *model.Contract, date string, qty string) {
	d, _ := time.Parse("2006-01-02", date)
	f.shipments.movements = append(f.shipments.movements, model.GatePass{
		ID:             uuid.New(),
		GatePassNumber: "GP-" + date,
		ContractID:     c.ID,
		Direction:      model.GatePassOutward,
		Quantity:       dec(qty),
		MovementDate:   d,
	})
}

func reconcile(f *fixture, c *model.Contract, rate string) (*dto.ReconcileResponse, error) {
	r := dec(rate)
	return f.reconciliation.Reconcile(ctx, actor, dto.ReconcileRequest{
		ContractID: c.ID.String(), AsOfDate: asOf, ValuationRate: &r,
	})
}

func TestReconcile_RaisesDiscrepancy(t *testing.T) {
	f := newFixture(decimal.Zero)
	c := approvedProduction(t, f)
	ship(f, c, "2024-03-10", "100")
	ship(f, c, "2024-04-02", "500") // after asOf

	resp, err := reconcile(f, c, "9.50")
	require.NoError(t, err)
	assert.Equal(t, "1000.00", resp.TotalProductionValue.StringFixed(2))
	assert.Equal(t, "950.00", resp.TotalShippedValue.StringFixed(2))
	assert.Equal(t, "50.00", resp.DiscrepancyAmount.StringFixed(2))
	assert.False(t, resp.WithinTolerance)
	require.NotNil(t, resp.Record)
	assert.Equal(t, model.ReconciliationPending, resp.Record.Status)

	assert.Equal(t, 1, f.dispatcher.count())
	assert.Equal(t, worker.AlertDiscrepancy, f.dispatcher.jobs[0].Kind)
	assert.Equal(t, "50.00", f.dispatcher.jobs[0].Discrepancy)
	assert.Len(t, f.store.auditRows("reconciliation_records", model.AuditInsert), 1)
}

func TestReconcile_PendingBillsAreNotProduction(t *testing.T) {
	f := newFixture(decimal.Zero)
	c, m, d := f.seedFloor("0.10")
	f.record(m, d, prodDate, model.ShiftDay, 10000)
	_, err := f.bill(c, prodDate, model.ShiftDay)
	require.NoError(t, err)

	resp, err := reconcile(f, c, "1")
	require.NoError(t, err)
	assert.True(t, resp.TotalProductionValue.IsZero())
	assert.True(t, resp.WithinTolerance)
	assert.Nil(t, resp.Record)
}

func TestReconcile_ToleranceIsStrict(t *testing.T) {
	f := newFixture(dec("50"))
	c := approvedProduction(t, f)
	ship(f, c, "2024-03-10", "100")

	resp, err := reconcile(f, c, "9.50")
	require.NoError(t, err)
	assert.True(t, resp.WithinTolerance)
	assert.Nil(t, resp.Record)
	assert.Zero(t, f.dispatcher.count())

	resp, err = reconcile(f, c, "9.49")
	require.NoError(t, err)
	assert.False(t, resp.WithinTolerance)
	assert.NotNil(t, resp.Record)
}

func TestReconcile_RerunUpdatesSameRecord(t *testing.T) {
	f := newFixture(decimal.Zero)
	c := approvedProduction(t, f)
	ship(f, c, "2024-03-10", "100")

	first, err := reconcile(f, c, "9.50")
	require.NoError(t, err)

	again, err := reconcile(f, c, "9.50")
	require.NoError(t, err)
	assert.Equal(t, first.Record.ID, again.Record.ID)
	assert.Equal(t, 1, f.dispatcher.count(), "unchanged figures do not re-alert")

	ship(f, c, "2024-03-20", "2")
	changed, err := reconcile(f, c, "9.50")
	require.NoError(t, err)
	assert.Equal(t, first.Record.ID, changed.Record.ID)
	assert.Equal(t, "31.00", changed.DiscrepancyAmount.StringFixed(2))
	assert.Equal(t, 2, f.dispatcher.count())

	// shipments catch up: the pending record is refreshed, not dropped
	ship(f, c, "2024-03-25", "3.2631579")
	settled, err := reconcile(f, c, "9.50")
	require.NoError(t, err)
	assert.True(t, settled.WithinTolerance)
	require.NotNil(t, settled.Record)
	assert.True(t, settled.Record.DiscrepancyAmount.IsZero())
	assert.Equal(t, 2, f.dispatcher.count())

	list, err := f.reconciliation.ListRecords(ctx, dto.ReconciliationFilter{Page: 1, Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Total)
}

func TestReconcile_ClosedRecordIsNotRewritten(t *testing.T) {
	f := newFixture(decimal.Zero)
	c := approvedProduction(t, f)
	ship(f, c, "2024-03-10", "100")

	resp, err := reconcile(f, c, "9.50")
	require.NoError(t, err)

	_, err = f.reconciliation.Resolve(ctx, "boss", resp.Record.ID, "   ")
	assert.ErrorIs(t, err, service.ErrNotesRequired)

	resolved, err := f.reconciliation.Resolve(ctx, "boss", resp.Record.ID, "short shipment, credit note issued")
	require.NoError(t, err)
	assert.Equal(t, model.ReconciliationResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedBy)
	assert.Equal(t, "boss", *resolved.ResolvedBy)

	_, err = reconcile(f, c, "9.50")
	assert.ErrorIs(t, err, service.ErrReconciliationClosed)

	got, err := f.reconciliation.GetRecord(ctx, resp.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReconciliationResolved, got.Status)
}

func TestEscalate_IsTerminal(t *testing.T) {
	f := newFixture(decimal.Zero)
	c := approvedProduction(t, f)
	ship(f, c, "2024-03-10", "100")
	resp, err := reconcile(f, c, "9.50")
	require.NoError(t, err)

	esc, err := f.reconciliation.Escalate(ctx, "boss", resp.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReconciliationEscalated, esc.Status)
	assert.Equal(t, 2, f.dispatcher.count())
	assert.Equal(t, worker.AlertEscalation, f.dispatcher.jobs[1].Kind)

	_, err = f.reconciliation.Resolve(ctx, "boss", resp.Record.ID, "too late")
	assert.ErrorIs(t, err, service.ErrInvalidStatusTransition)
	_, err = f.reconciliation.Escalate(ctx, "boss", resp.Record.ID)
	assert.ErrorIs(t, err, service.ErrInvalidStatusTransition)

	_, err = reconcile(f, c, "9.50")
	assert.ErrorIs(t, err, service.ErrReconciliationClosed)

	_, err = f.reconciliation.Escalate(ctx, "boss", uuid.New())
	assert.ErrorIs(t, err, service.ErrRecordNotFound)
}

func TestReconcile_ValuationRate(t *testing.T) {
	f := newFixture(decimal.Zero)
	c := approvedProduction(t, f)
	ship(f, c, "2024-03-10", "100")

	_, err := f.reconciliation.Reconcile(ctx, actor, dto.ReconcileRequest{ContractID: c.ID.String(), AsOfDate: asOf})
	assert.ErrorIs(t, err, service.ErrNoValuationRate)

	rate := dec("10")
	withRate, err := f.contracts.CreateContract(ctx, actor, dto.CreateContractRequest{
		PartyName: "Alkaram", StartDate: "2024-01-01", ValuationRate: &rate,
	})
	require.NoError(t, err)
	ship(f, withRate, "2024-03-10", "3")

	resp, err := f.reconciliation.Reconcile(ctx, actor, dto.ReconcileRequest{ContractID: withRate.ID.String(), AsOfDate: asOf})
	require.NoError(t, err)
	assert.Equal(t, "30.00", resp.TotalShippedValue.StringFixed(2))
	assert.Equal(t, "-30.00", resp.DiscrepancyAmount.StringFixed(2))
}

func TestReconcile_ShipmentFeedDown(t *testing.T) {
	f := newFixture(decimal.Zero)
	c := approvedProduction(t, f)
	f.shipments.err = errors.New("circuit open")

	_, err := reconcile(f, c, "9.50")
	assert.ErrorIs(t, err, service.ErrShipmentsUnavailable)
	assert.Empty(t, f.store.auditRows("reconciliation_records", ""))
}

func TestShippedValue_IgnoresInward(t *testing.T) {
	moves := []model.GatePass{
		{Direction: model.GatePassOutward, Quantity: dec("10.5")},
		{Direction: model.GatePassInward, Quantity: dec("99")},
		{Direction: model.GatePassOutward, Quantity: dec("0.333")},
	}
	assert.Equal(t, "36.16", service.ShippedValue(moves, dec("3.3375")).StringFixed(2))
}
