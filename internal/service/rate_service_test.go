package service_test

import (
	"testing"
	"time"

	"stitchbill/internal/dto"
	"stitchbill/internal/model"
	"stitchbill/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetBaseRate_ClosesPreviousInterval(t *testing.T) {
	f := newFixture(decimal.Zero)

	_, err := f.rates.CurrentBaseRate(ctx)
	assert.ErrorIs(t, err, service.ErrNoActiveRate)

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.AddDate(0, 2, 0)
	first, err := f.rates.SetBaseRate(ctx, actor, dto.SetBaseRateRequest{RatePerStitch: dec("0.10"), EffectiveFrom: &t0})
	require.NoError(t, err)
	second, err := f.rates.SetBaseRate(ctx, actor, dto.SetBaseRateRequest{RatePerStitch: dec("0.12"), EffectiveFrom: &t1})
	require.NoError(t, err)

	cur, err := f.rates.CurrentBaseRate(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, cur.ID)
	assert.True(t, cur.IsCurrent())

	history, err := f.rates.ListBaseRates(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)
	open := 0
	for _, b := range history {
		if b.IsCurrent() {
			open++
			continue
		}
		assert.Equal(t, first.ID, b.ID)
		require.NotNil(t, b.EffectiveTo)
		assert.True(t, b.EffectiveTo.Equal(t1))
	}
	assert.Equal(t, 1, open)

	rows := f.store.auditRows("base_rates", model.AuditInsert)
	require.Len(t, rows, 2)
	assert.Equal(t, "null", rows[0].OldValues)
	assert.Contains(t, rows[1].OldValues, first.ID.String())
}

func TestSetBaseRate_Rejections(t *testing.T) {
	f := newFixture(decimal.Zero)
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := f.rates.SetBaseRate(ctx, actor, dto.SetBaseRateRequest{RatePerStitch: decimal.Zero})
	assert.ErrorIs(t, err, service.ErrInvalidRate)

	_, err = f.rates.SetBaseRate(ctx, actor, dto.SetBaseRateRequest{RatePerStitch: dec("0.10"), EffectiveFrom: &t0})
	require.NoError(t, err)

	_, err = f.rates.SetBaseRate(ctx, actor, dto.SetBaseRateRequest{RatePerStitch: dec("0.11"), EffectiveFrom: &t0})
	assert.ErrorIs(t, err, service.ErrInvalidEffectiveFrom)

	earlier := t0.Add(-time.Hour)
	_, err = f.rates.SetBaseRate(ctx, actor, dto.SetBaseRateRequest{RatePerStitch: dec("0.11"), EffectiveFrom: &earlier})
	assert.ErrorIs(t, err, service.ErrInvalidEffectiveFrom)

	later := time.Now().UTC().Add(48 * time.Hour)
	_, err = f.rates.SetBaseRate(ctx, actor, dto.SetBaseRateRequest{RatePerStitch: dec("0.11"), EffectiveFrom: &later})
	assert.ErrorIs(t, err, service.ErrFutureEffectiveFrom)

	// decimal(14,6) would silently round this to zero
	_, err = f.rates.SetBaseRate(ctx, actor, dto.SetBaseRateRequest{RatePerStitch: dec("0.0000004")})
	assert.ErrorIs(t, err, service.ErrInvalidRate)

	cur, err := f.rates.CurrentBaseRate(ctx)
	require.NoError(t, err)
	assert.True(t, dec("0.10").Equal(cur.RatePerStitch))

	assert.Len(t, f.store.auditRows("base_rates", model.AuditInsert), 1)
}

func TestRateElements(t *testing.T) {
	f := newFixture(decimal.Zero)

	e, err := f.rates.CreateElement(ctx, actor, dto.CreateRateElementRequest{Name: "Borer", RatePerStitch: dec("0.02")})
	require.NoError(t, err)
	assert.True(t, e.Active)

	_, err = f.rates.CreateElement(ctx, actor, dto.CreateRateElementRequest{Name: "borer", RatePerStitch: dec("0.03")})
	assert.ErrorIs(t, err, service.ErrDuplicateElementName)

	_, err = f.rates.CreateElement(ctx, actor, dto.CreateRateElementRequest{Name: "Tilla", RatePerStitch: dec("-0.01")})
	assert.ErrorIs(t, err, service.ErrInvalidRate)

	_, err = f.rates.UpdateElementRate(ctx, actor, e.ID, decimal.Zero)
	assert.ErrorIs(t, err, service.ErrInvalidRate)

	_, err = f.rates.CreateElement(ctx, actor, dto.CreateRateElementRequest{Name: "Sequin", RatePerStitch: dec("0.0012345")})
	assert.ErrorIs(t, err, service.ErrInvalidRate)

	_, err = f.rates.UpdateElementRate(ctx, actor, e.ID, dec("0.0000004"))
	assert.ErrorIs(t, err, service.ErrInvalidRate)

	// trailing zeros past the stored scale are fine
	_, err = f.rates.UpdateElementRate(ctx, actor, e.ID, dec("0.02000000"))
	require.NoError(t, err)

	updated, err := f.rates.UpdateElementRate(ctx, actor, e.ID, dec("0.025"))
	require.NoError(t, err)
	assert.True(t, dec("0.025").Equal(updated.RatePerStitch))

	_, err = f.rates.DeactivateElement(ctx, actor, e.ID)
	require.NoError(t, err)

	active, err := f.rates.ListActiveElements(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := f.rates.ListElements(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	assert.Len(t, f.store.auditRows("rate_elements", model.AuditUpdate), 3)
}
