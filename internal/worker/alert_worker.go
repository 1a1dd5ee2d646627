package worker

// alert_worker.go
// Mails reconciliation alerts (new or changed discrepancy, escalation) to
// the configured recipients. SMTP failures are retried with backoff.

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const maxAttempts = 3

// Alert kinds.
const (
	AlertDiscrepancy = "discrepancy"
	AlertEscalation  = "escalation"
)

// AlertJobPayload is the job envelope sent to QueueAlerts.
type AlertJobPayload struct {
	Kind             string `json:"kind"`
	ReconciliationID string `json:"reconciliation_id"`
	ContractID       string `json:"contract_id"`
	ContractNumber   string `json:"contract_number"`
	AsOfDate         string `json:"as_of_date"`
	ProductionValue  string `json:"production_value"`
	ShippedValue     string `json:"shipped_value"`
	Discrepancy      string `json:"discrepancy"`
	Actor            string `json:"actor"`
}

// AlertSender is satisfied by *infra.Mailer.
type AlertSender interface {
	SendAlert(to []string, subject, body string) error
}

type AlertWorker struct {
	sender     AlertSender
	recipients []string
	backoff    time.Duration
}

func NewAlertWorker(sender AlertSender, recipients []string) *AlertWorker {
	return &AlertWorker{sender: sender, recipients: recipients, backoff: time.Second}
}

// Process sends one alert. With no recipients configured the alert is only
// logged.
func (w *AlertWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var p AlertJobPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Error().Err(err).Msg("alert_worker: invalid payload")
		return fmt.Errorf("alert_worker: invalid payload: %w", err)
	}

	subject, body := renderAlert(p)
	if len(w.recipients) == 0 || w.sender == nil {
		log.Warn().Str("contract", p.ContractNumber).Str("kind", p.Kind).Msg("alert_worker: no recipients, alert logged only")
		return nil
	}

	err := withRetry(ctx, maxAttempts, w.backoff, func(attempt int) error {
		if err := w.sender.SendAlert(w.recipients, subject, body); err != nil {
			log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Str("reconciliation_id", p.ReconciliationID).
				Msg("alert_worker: send failed, retrying")
			return err
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("reconciliation_id", p.ReconciliationID).Msg("alert_worker: giving up")
		return err
	}
	log.Info().Str("reconciliation_id", p.ReconciliationID).Str("kind", p.Kind).Msg("alert_worker: alert sent")
	return nil
}

func renderAlert(p AlertJobPayload) (string, string) {
	var subject string
	switch p.Kind {
	case AlertEscalation:
		subject = fmt.Sprintf("[stitchbill] Reconciliation escalated: %s (%s)", p.ContractNumber, p.AsOfDate)
	default:
		subject = fmt.Sprintf("[stitchbill] Discrepancy on %s as of %s", p.ContractNumber, p.AsOfDate)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Contract:          %s\n", p.ContractNumber)
	fmt.Fprintf(&b, "As of:             %s\n", p.AsOfDate)
	fmt.Fprintf(&b, "Production value:  %s\n", p.ProductionValue)
	fmt.Fprintf(&b, "Shipped value:     %s\n", p.ShippedValue)
	fmt.Fprintf(&b, "Discrepancy:       %s\n", p.Discrepancy)
	if p.Actor != "" {
		fmt.Fprintf(&b, "Triggered by:      %s\n", p.Actor)
	}
	fmt.Fprintf(&b, "Reconciliation id: %s\n", p.ReconciliationID)
	return subject, b.String()
}

// withRetry calls fn up to attempts times with exponential backoff
// (base, 2×base, …). Returns the last error.
func withRetry(ctx context.Context, attempts int, base time.Duration, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			wait := base * time.Duration(1<<uint(i-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := fn(i); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}
