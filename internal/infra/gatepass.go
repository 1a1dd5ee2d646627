package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"stitchbill/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// gatePassDTO is one movement as returned by the inventory service.
type gatePassDTO struct {
	ID             uuid.UUID       `json:"id"`
	GatePassNumber string          `json:"gate_pass_number"`
	ContractID     uuid.UUID       `json:"contract_id"`
	Direction      string          `json:"direction"`
	Quantity       decimal.Decimal `json:"quantity"`
	MovementDate   string          `json:"movement_date"` // YYYY-MM-DD
}

// GatePassClient reads outward gate-pass movements from the external
// inventory service. Calls go through a circuit breaker so a dead inventory
// service fails reconciliation fast instead of holding request goroutines.
type GatePassClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *CircuitBreaker
}

func NewGatePassClient(baseURL string, breaker *CircuitBreaker) *GatePassClient {
	if breaker == nil {
		breaker = NewCircuitBreaker(DefaultCBConfig("gatepass"))
	}
	return &GatePassClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		breaker:    breaker,
	}
}

// Breaker exposes the circuit breaker for the health endpoint.
func (c *GatePassClient) Breaker() *CircuitBreaker { return c.breaker }

// OutwardMovements returns outward movements for contractID with
// movement_date on or before asOf.
func (c *GatePassClient) OutwardMovements(ctx context.Context, contractID uuid.UUID, asOf time.Time) ([]model.GatePass, error) {
	var out []model.GatePass
	err := c.breaker.Execute(func() error {
		res, err := c.fetch(ctx, contractID, asOf)
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	return out, err
}

func (c *GatePassClient) fetch(ctx context.Context, contractID uuid.UUID, asOf time.Time) ([]model.GatePass, error) {
	q := url.Values{}
	q.Set("contract_id", contractID.String())
	q.Set("direction", model.GatePassOutward)
	q.Set("to", asOf.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/gate-passes?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("gatepass: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gatepass: inventory service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gatepass: inventory service returned %d", resp.StatusCode)
	}

	var rows []gatePassDTO
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("gatepass: decode response: %w", err)
	}

	out := make([]model.GatePass, 0, len(rows))
	for _, r := range rows {
		d, err := time.Parse("2006-01-02", r.MovementDate)
		if err != nil {
			return nil, fmt.Errorf("gatepass: bad movement_date %q: %w", r.MovementDate, err)
		}
		// upstream filters too; re-check
		if r.Direction != model.GatePassOutward || d.After(asOf) {
			continue
		}
		out = append(out, model.GatePass{
			ID:             r.ID,
			GatePassNumber: r.GatePassNumber,
			ContractID:     r.ContractID,
			Direction:      r.Direction,
			Quantity:       r.Quantity,
			MovementDate:   d,
		})
	}
	return out, nil
}
