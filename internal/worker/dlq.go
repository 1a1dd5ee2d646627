package worker

// dlq.go: alerts that could not be delivered.
// Each source queue has a Redis list dlq:{queue}. Entries carry enough of the
// reconciliation to re-send the alert by hand without decoding the payload.

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DLQPrefix = "dlq:"

// DeadAlert is one undeliverable job. The reconciliation fields are empty
// when the payload was not a readable alert.
type DeadAlert struct {
	Queue            string          `json:"queue"`
	JobType          string          `json:"job_type"`
	Kind             string          `json:"kind,omitempty"`
	ReconciliationID string          `json:"reconciliation_id,omitempty"`
	ContractNumber   string          `json:"contract_number,omitempty"`
	AsOfDate         string          `json:"as_of_date,omitempty"`
	Payload          json.RawMessage `json:"payload"`
	Reason           string          `json:"reason"`
	Attempts         int             `json:"attempts"`
	FailedAt         time.Time       `json:"failed_at"`
}

func newDeadAlert(queue, jobType string, payload json.RawMessage, reason string, attempts int, now time.Time) DeadAlert {
	if !json.Valid(payload) {
		// kept as a string so the entry itself still encodes
		payload, _ = json.Marshal(string(payload))
	}
	d := DeadAlert{
		Queue:    queue,
		JobType:  jobType,
		Payload:  payload,
		Reason:   reason,
		Attempts: attempts,
		FailedAt: now.UTC(),
	}
	if jobType != JobDiscrepancyAlert {
		return d
	}
	var p AlertJobPayload
	if err := json.Unmarshal(payload, &p); err == nil {
		d.Kind = p.Kind
		d.ReconciliationID = p.ReconciliationID
		d.ContractNumber = p.ContractNumber
		d.AsOfDate = p.AsOfDate
	}
	return d
}

// SendToDLQ parks a failed job. Push errors are logged, not returned: the
// worker has nowhere else to put the job.
func SendToDLQ(ctx context.Context, rdb *redis.Client, queue, jobType string, payload json.RawMessage, reason string, attempts int) {
	dead := newDeadAlert(queue, jobType, payload, reason, attempts, time.Now())
	data, err := json.Marshal(dead)
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: marshal")
		return
	}
	key := DLQPrefix + queue
	if err := rdb.LPush(ctx, key, data).Err(); err != nil {
		log.Error().
			Err(err).
			Str("dlq_key", key).
			Str("reconciliation_id", dead.ReconciliationID).
			Msg("dlq: push failed, alert lost")
		return
	}
	log.Warn().
		Str("reconciliation_id", dead.ReconciliationID).
		Str("contract", dead.ContractNumber).
		Str("kind", dead.Kind).
		Str("reason", reason).
		Int("attempts", attempts).
		Msg("dlq: alert parked")
}

// DLQLength is reported by /health as alerts_dlq.
func DLQLength(ctx context.Context, rdb *redis.Client, queue string) (int64, error) {
	return rdb.LLen(ctx, DLQPrefix+queue).Result()
}
