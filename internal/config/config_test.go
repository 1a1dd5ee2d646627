package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTolerance(t *testing.T) {
	assert.Equal(t, "12.5", (&Config{ReconciliationTolerance: " 12.5 "}).Tolerance().String())
	assert.True(t, (&Config{ReconciliationTolerance: "abc"}).Tolerance().IsZero())
	assert.True(t, (&Config{ReconciliationTolerance: "-3"}).Tolerance().IsZero())
	assert.True(t, (&Config{}).Tolerance().IsZero())
}

func TestRecipients(t *testing.T) {
	c := &Config{AlertRecipients: "ops@factory.pk, ,accounts@factory.pk "}
	assert.Equal(t, []string{"ops@factory.pk", "accounts@factory.pk"}, c.Recipients())
	assert.Empty(t, (&Config{}).Recipients())
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "9100")
	cfg, err := Load()
	assert.NoError(t, err)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, 30, cfg.BillingLockTTLSeconds)
}
