package service_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"stitchbill/internal/dto"
	"stitchbill/internal/infra"
	"stitchbill/internal/model"
	"stitchbill/internal/repository"
	"stitchbill/internal/service"
	"stitchbill/internal/worker"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── In-memory store ───────────────────────────────────────────────────────────
// One store backs every stub repository so cross-repo state (entry billed
// ↔ billing record) can be asserted. Stubs return copies; services only see
// their own changes after calling a write method.

type memStore struct {
	mu sync.Mutex

	baseRates   []*model.BaseRate
	elements    map[uuid.UUID]*model.RateElement
	machines    map[uuid.UUID]*model.Machine
	contracts   map[uuid.UUID]*model.Contract
	designs     map[uuid.UUID]*model.Design
	entries     map[uuid.UUID]*model.ProductionEntry
	overrides   map[uuid.UUID][]model.StitchOverride
	billing     map[uuid.UUID]*model.BillingRecord
	billingSeq  []uuid.UUID
	recons      map[uuid.UUID]*model.ReconciliationRecord
	audits      []model.AuditLog
	contractSeq int64

	// billingGate, when set, is called inside LockUnbilledForBilling before
	// the candidate rows are returned.
	billingGate func()
}

func newMemStore() *memStore {
	return &memStore{
		elements:  map[uuid.UUID]*model.RateElement{},
		machines:  map[uuid.UUID]*model.Machine{},
		contracts: map[uuid.UUID]*model.Contract{},
		designs:   map[uuid.UUID]*model.Design{},
		entries:   map[uuid.UUID]*model.ProductionEntry{},
		overrides: map[uuid.UUID][]model.StitchOverride{},
		billing:   map[uuid.UUID]*model.BillingRecord{},
		recons:    map[uuid.UUID]*model.ReconciliationRecord{},
	}
}

func stitchCount(n int64) *int64 { return &n }

func uniqueViolation() error { return &pgconn.PgError{Code: "23505"} }

func newID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (s *memStore) auditRows(table string, action string) []model.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.AuditLog
	for _, l := range s.audits {
		if l.EntityTable == table && (action == "" || l.Action == action) {
			out = append(out, l)
		}
	}
	return out
}

func (s *memStore) billingRecords() []model.BillingRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.BillingRecord, 0, len(s.billingSeq))
	for _, id := range s.billingSeq {
		out = append(out, *s.billing[id])
	}
	return out
}

func (s *memStore) entry(id uuid.UUID) model.ProductionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := *s.entries[id]
	e.Overrides = append([]model.StitchOverride(nil), s.overrides[id]...)
	return e
}

// ── RateRepository ────────────────────────────────────────────────────────────

type stubRateRepo struct{ s *memStore }

var _ repository.RateRepository = (*stubRateRepo)(nil)

func (r *stubRateRepo) DB() *gorm.DB { return nil }

func (r *stubRateRepo) current() (*model.BaseRate, error) {
	for _, b := range r.s.baseRates {
		if b.EffectiveTo == nil {
			cp := *b
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubRateRepo) CurrentBaseRate(_ context.Context, _ *gorm.DB) (*model.BaseRate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.current()
}

func (r *stubRateRepo) LockCurrentBaseRate(_ context.Context, _ *gorm.DB) (*model.BaseRate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.current()
}

func (r *stubRateRepo) CloseBaseRate(_ context.Context, _ *gorm.DB, id uuid.UUID, effectiveTo time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.baseRates {
		if b.ID == id && b.EffectiveTo == nil {
			t := effectiveTo
			b.EffectiveTo = &t
			return nil
		}
	}
	return repository.ErrNoRowsAffected
}

func (r *stubRateRepo) CreateBaseRate(_ context.Context, _ *gorm.DB, b *model.BaseRate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if b.EffectiveTo == nil {
		if _, err := r.current(); err == nil {
			return uniqueViolation()
		}
	}
	newID(&b.ID)
	b.CreatedAt = time.Now()
	cp := *b
	r.s.baseRates = append(r.s.baseRates, &cp)
	return nil
}

func (r *stubRateRepo) ListBaseRates(_ context.Context) ([]model.BaseRate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.BaseRate, 0, len(r.s.baseRates))
	for i := len(r.s.baseRates) - 1; i >= 0; i-- {
		out = append(out, *r.s.baseRates[i])
	}
	return out, nil
}

func (r *stubRateRepo) CreateElement(_ context.Context, _ *gorm.DB, e *model.RateElement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.elements {
		if strings.EqualFold(x.Name, e.Name) {
			return uniqueViolation()
		}
	}
	newID(&e.ID)
	cp := *e
	r.s.elements[e.ID] = &cp
	return nil
}

func (r *stubRateRepo) FindElementByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*model.RateElement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.elements[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *stubRateRepo) FindElementByName(_ context.Context, name string) (*model.RateElement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.elements {
		if strings.EqualFold(e.Name, name) {
			cp := *e
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubRateRepo) FindElementsByIDs(_ context.Context, _ *gorm.DB, ids []uuid.UUID) ([]model.RateElement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.RateElement
	for _, id := range ids {
		if e, ok := r.s.elements[id]; ok {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *stubRateRepo) ListElements(_ context.Context, includeInactive bool) ([]model.RateElement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.RateElement
	for _, e := range r.s.elements {
		if e.Active || includeInactive {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *stubRateRepo) UpdateElement(_ context.Context, _ *gorm.DB, e *model.RateElement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *e
	r.s.elements[e.ID] = &cp
	return nil
}

// ── MachineRepository ─────────────────────────────────────────────────────────

type stubMachineRepo struct{ s *memStore }

var _ repository.MachineRepository = (*stubMachineRepo)(nil)

func (r *stubMachineRepo) DB() *gorm.DB { return nil }

func (r *stubMachineRepo) Create(_ context.Context, _ *gorm.DB, m *model.Machine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.machines {
		if x.Code == m.Code {
			return uniqueViolation()
		}
	}
	newID(&m.ID)
	cp := *m
	r.s.machines[m.ID] = &cp
	return nil
}

func (r *stubMachineRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Machine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.machines[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *stubMachineRepo) FindByCode(_ context.Context, code string) (*model.Machine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.machines {
		if m.Code == code {
			cp := *m
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubMachineRepo) List(_ context.Context, includeInactive bool) ([]model.Machine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Machine
	for _, m := range r.s.machines {
		if m.Active || includeInactive {
			out = append(out, *m)
		}
	}
	return out, nil
}

// ── ContractRepository ────────────────────────────────────────────────────────

type stubContractRepo struct{ s *memStore }

var _ repository.ContractRepository = (*stubContractRepo)(nil)

func (r *stubContractRepo) DB() *gorm.DB { return nil }

func (r *stubContractRepo) NextContractNumber(_ context.Context, _ *gorm.DB) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.contractSeq++
	return r.s.contractSeq, nil
}

func (r *stubContractRepo) NumberExists(_ context.Context, _ *gorm.DB, number string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.contracts {
		if c.ContractNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubContractRepo) Create(_ context.Context, _ *gorm.DB, c *model.Contract) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	newID(&c.ID)
	cp := *c
	cp.Designs = nil
	r.s.contracts[c.ID] = &cp
	return nil
}

func (r *stubContractRepo) find(id uuid.UUID) (*model.Contract, error) {
	c, ok := r.s.contracts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	cp.Designs = nil
	for _, d := range r.s.designs {
		if d.ContractID == id {
			cp.Designs = append(cp.Designs, *d)
		}
	}
	return &cp, nil
}

func (r *stubContractRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Contract, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.find(id)
}

func (r *stubContractRepo) FindByIDForShare(_ context.Context, _ *gorm.DB, id uuid.UUID) (*model.Contract, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.find(id)
}

func (r *stubContractRepo) FindByIDForUpdate(_ context.Context, _ *gorm.DB, id uuid.UUID) (*model.Contract, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.find(id)
}

func (r *stubContractRepo) UpdateStatus(_ context.Context, _ *gorm.DB, id uuid.UUID, from, to string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.contracts[id]
	if !ok || c.Status != from {
		return repository.ErrNoRowsAffected
	}
	c.Status = to
	return nil
}

func (r *stubContractRepo) List(_ context.Context, filter dto.ContractFilter) ([]model.Contract, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Contract
	for _, c := range r.s.contracts {
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		out = append(out, *c)
	}
	return out, int64(len(out)), nil
}

func (r *stubContractRepo) CreateDesign(_ context.Context, _ *gorm.DB, d *model.Design) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	newID(&d.ID)
	for i := range d.RateElements {
		newID(&d.RateElements[i].ID)
		d.RateElements[i].DesignID = d.ID
	}
	cp := *d
	cp.RateElements = append([]model.DesignRateElement(nil), d.RateElements...)
	r.s.designs[d.ID] = &cp
	return nil
}

func (r *stubContractRepo) FindDesignByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*model.Design, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.designs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *stubContractRepo) FindDesignsByIDs(_ context.Context, _ *gorm.DB, ids []uuid.UUID) ([]model.Design, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Design
	for _, id := range ids {
		if d, ok := r.s.designs[id]; ok {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (r *stubContractRepo) DesignNumberExists(_ context.Context, _ *gorm.DB, contractID uuid.UUID, number string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.designs {
		if d.ContractID == contractID && d.DesignNumber == number {
			return true, nil
		}
	}
	return false, nil
}

// ── ProductionRepository ──────────────────────────────────────────────────────

type stubProductionRepo struct{ s *memStore }

var _ repository.ProductionRepository = (*stubProductionRepo)(nil)

func (r *stubProductionRepo) DB() *gorm.DB { return nil }

func (r *stubProductionRepo) load(id uuid.UUID) (*model.ProductionEntry, error) {
	e, ok := r.s.entries[id]
	if !ok || e.DeletedAt.Valid {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *e
	cp.Overrides = append([]model.StitchOverride(nil), r.s.overrides[id]...)
	return &cp, nil
}

func (r *stubProductionRepo) Create(_ context.Context, _ *gorm.DB, e *model.ProductionEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	newID(&e.ID)
	e.CreatedAt = time.Now()
	cp := *e
	cp.Overrides = nil
	r.s.entries[e.ID] = &cp
	return nil
}

func (r *stubProductionRepo) FindByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*model.ProductionEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.load(id)
}

func (r *stubProductionRepo) LockByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*model.ProductionEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.load(id)
}

func (r *stubProductionRepo) SoftDelete(_ context.Context, _ *gorm.DB, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.entries[id]
	if !ok || e.IsBilled || e.DeletedAt.Valid {
		return repository.ErrNoRowsAffected
	}
	e.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	return nil
}

func (r *stubProductionRepo) List(_ context.Context, filter dto.EntryFilter) ([]model.ProductionEntry, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.ProductionEntry
	for id, e := range r.s.entries {
		if e.DeletedAt.Valid {
			continue
		}
		if filter.ContractID != "" && e.ContractID.String() != filter.ContractID {
			continue
		}
		cp, _ := r.load(id)
		out = append(out, *cp)
	}
	return out, int64(len(out)), nil
}

func (r *stubProductionRepo) CreateOverride(_ context.Context, _ *gorm.DB, o *model.StitchOverride) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.overrides[o.ProductionEntryID] {
		if x.Revision == o.Revision {
			return uniqueViolation()
		}
	}
	newID(&o.ID)
	o.CreatedAt = time.Now()
	r.s.overrides[o.ProductionEntryID] = append(r.s.overrides[o.ProductionEntryID], *o)
	return nil
}

func (r *stubProductionRepo) LockUnbilledForBilling(_ context.Context, _ *gorm.DB, contractID uuid.UUID, date time.Time, shift string) ([]model.ProductionEntry, error) {
	if gate := r.s.billingGate; gate != nil {
		gate()
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.ProductionEntry
	for id, e := range r.s.entries {
		if e.ContractID == contractID && e.ProductionDate.Equal(date) && e.Shift == shift && !e.IsBilled && !e.DeletedAt.Valid {
			cp, _ := r.load(id)
			out = append(out, *cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *stubProductionRepo) MarkBilled(_ context.Context, _ *gorm.DB, entryID, billingRecordID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.entries[entryID]
	if !ok || e.IsBilled {
		return repository.ErrNoRowsAffected
	}
	e.IsBilled = true
	id := billingRecordID
	e.BillingRecordID = &id
	return nil
}

func (r *stubProductionRepo) CountUnbilled(_ context.Context, _ *gorm.DB, contractID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, e := range r.s.entries {
		if e.ContractID == contractID && !e.IsBilled && !e.DeletedAt.Valid {
			n++
		}
	}
	return n, nil
}

func (r *stubProductionRepo) ListPostBillingOverridden(_ context.Context, contractID uuid.UUID) ([]model.ProductionEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.ProductionEntry
	for id, e := range r.s.entries {
		if e.ContractID != contractID || !e.IsBilled {
			continue
		}
		for _, o := range r.s.overrides[id] {
			if o.PostBilling {
				cp, _ := r.load(id)
				out = append(out, *cp)
				break
			}
		}
	}
	return out, nil
}

// ── BillingRepository ─────────────────────────────────────────────────────────

type stubBillingRepo struct{ s *memStore }

var _ repository.BillingRepository = (*stubBillingRepo)(nil)

func (r *stubBillingRepo) DB() *gorm.DB { return nil }

func (r *stubBillingRepo) Create(_ context.Context, _ *gorm.DB, b *model.BillingRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if b.Kind == model.BillingRegular {
		for _, x := range r.s.billing {
			if x.Kind == model.BillingRegular && x.ProductionEntryID == b.ProductionEntryID {
				return uniqueViolation()
			}
		}
	}
	newID(&b.ID)
	b.CreatedAt = time.Now()
	cp := *b
	r.s.billing[b.ID] = &cp
	r.s.billingSeq = append(r.s.billingSeq, b.ID)
	return nil
}

func (r *stubBillingRepo) FindByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*model.BillingRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.billing[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *stubBillingRepo) LockByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.BillingRecord, error) {
	return r.FindByID(ctx, tx, id)
}

func (r *stubBillingRepo) Approve(_ context.Context, _ *gorm.DB, id uuid.UUID, approver string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.billing[id]
	if !ok || b.Status != model.BillingPending {
		return repository.ErrNoRowsAffected
	}
	b.Status = model.BillingApproved
	b.ApprovedBy = &approver
	b.ApprovedAt = &at
	return nil
}

func (r *stubBillingRepo) ListByEntry(_ context.Context, _ *gorm.DB, entryID uuid.UUID) ([]model.BillingRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.BillingRecord
	for _, id := range r.s.billingSeq {
		if b := r.s.billing[id]; b.ProductionEntryID == entryID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *stubBillingRepo) List(_ context.Context, filter dto.BillingFilter) ([]model.BillingRecord, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.BillingRecord
	for _, id := range r.s.billingSeq {
		b := r.s.billing[id]
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		if filter.Kind != "" && b.Kind != filter.Kind {
			continue
		}
		out = append(out, *b)
	}
	return out, int64(len(out)), nil
}

func (r *stubBillingRepo) SumApproved(_ context.Context, _ *gorm.DB, contractID uuid.UUID, asOf time.Time) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sum := decimal.Zero
	for _, b := range r.s.billing {
		if b.ContractID == contractID && b.Status == model.BillingApproved && !b.BillingDate.After(asOf) {
			sum = sum.Add(b.TotalAmount)
		}
	}
	return sum, nil
}

// ── ReconciliationRepository ──────────────────────────────────────────────────

type stubReconciliationRepo struct{ s *memStore }

var _ repository.ReconciliationRepository = (*stubReconciliationRepo)(nil)

func (r *stubReconciliationRepo) DB() *gorm.DB { return nil }

func (r *stubReconciliationRepo) FindByKey(_ context.Context, _ *gorm.DB, contractID uuid.UUID, date time.Time) (*model.ReconciliationRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rec := range r.s.recons {
		if rec.ContractID == contractID && rec.ReconciliationDate.Equal(date) {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubReconciliationRepo) Create(_ context.Context, _ *gorm.DB, rec *model.ReconciliationRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	newID(&rec.ID)
	cp := *rec
	r.s.recons[rec.ID] = &cp
	return nil
}

func (r *stubReconciliationRepo) Update(_ context.Context, _ *gorm.DB, rec *model.ReconciliationRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *rec
	r.s.recons[rec.ID] = &cp
	return nil
}

func (r *stubReconciliationRepo) FindByID(_ context.Context, id uuid.UUID) (*model.ReconciliationRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.recons[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *stubReconciliationRepo) LockByID(ctx context.Context, _ *gorm.DB, id uuid.UUID) (*model.ReconciliationRecord, error) {
	return r.FindByID(ctx, id)
}

func (r *stubReconciliationRepo) List(_ context.Context, filter dto.ReconciliationFilter) ([]model.ReconciliationRecord, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.ReconciliationRecord
	for _, rec := range r.s.recons {
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		out = append(out, *rec)
	}
	return out, int64(len(out)), nil
}

// ── AuditRepository ───────────────────────────────────────────────────────────

type stubAuditRepo struct{ s *memStore }

var _ repository.AuditRepository = (*stubAuditRepo)(nil)

func (r *stubAuditRepo) Create(_ context.Context, _ *gorm.DB, l *model.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	newID(&l.ID)
	l.CreatedAt = time.Now()
	r.s.audits = append(r.s.audits, *l)
	return nil
}

func (r *stubAuditRepo) List(_ context.Context, filter dto.AuditFilter) ([]model.AuditLog, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.AuditLog
	for _, l := range r.s.audits {
		if filter.TableName != "" && l.EntityTable != filter.TableName {
			continue
		}
		if filter.RecordID != "" && l.RecordID.String() != filter.RecordID {
			continue
		}
		if filter.Actor != "" && l.Actor != filter.Actor {
			continue
		}
		out = append(out, l)
	}
	return out, int64(len(out)), nil
}

// ── Collaborators ─────────────────────────────────────────────────────────────

// stubLocker is an in-process Locker keyed like the Redis one.
type stubLocker struct {
	mu   sync.Mutex
	held map[string]bool
	err  error // returned from every TryLock when set
}

func newStubLocker() *stubLocker { return &stubLocker{held: map[string]bool{}} }

type stubLock struct {
	l   *stubLocker
	key string
}

func (k *stubLock) Release(_ context.Context) error {
	k.l.mu.Lock()
	defer k.l.mu.Unlock()
	delete(k.l.held, k.key)
	return nil
}

func (l *stubLocker) TryLock(_ context.Context, key string) (infra.Lock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	if l.held[key] {
		return nil, infra.ErrLockHeld
	}
	l.held[key] = true
	return &stubLock{l: l, key: key}, nil
}

var _ service.Locker = (*stubLocker)(nil)

type stubShipments struct {
	movements []model.GatePass
	err       error
}

func (s *stubShipments) OutwardMovements(_ context.Context, contractID uuid.UUID, asOf time.Time) ([]model.GatePass, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []model.GatePass
	for _, m := range s.movements {
		if m.ContractID == contractID && m.Direction == model.GatePassOutward && !m.MovementDate.After(asOf) {
			out = append(out, m)
		}
	}
	return out, nil
}

var _ service.ShipmentSource = (*stubShipments)(nil)

type stubDispatcher struct {
	mu   sync.Mutex
	jobs []worker.AlertJobPayload
}

func (d *stubDispatcher) EnqueueAlert(_ context.Context, p worker.AlertJobPayload) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs = append(d.jobs, p)
	return nil
}

func (d *stubDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.jobs)
}

var _ service.AlertDispatcher = (*stubDispatcher)(nil)

// ── Fixture ───────────────────────────────────────────────────────────────────

type fixture struct {
	store      *memStore
	locker     *stubLocker
	shipments  *stubShipments
	dispatcher *stubDispatcher

	audit          service.AuditService
	rates          service.RateService
	machines       service.MachineService
	contracts      service.ContractService
	production     service.ProductionService
	billing        service.BillingService
	reconciliation service.ReconciliationService
}

func newFixture(tolerance decimal.Decimal) *fixture {
	s := newMemStore()
	f := &fixture{
		store:      s,
		locker:     newStubLocker(),
		shipments:  &stubShipments{},
		dispatcher: &stubDispatcher{},
	}
	rateRepo := &stubRateRepo{s}
	machineRepo := &stubMachineRepo{s}
	contractRepo := &stubContractRepo{s}
	productionRepo := &stubProductionRepo{s}
	billingRepo := &stubBillingRepo{s}
	reconRepo := &stubReconciliationRepo{s}

	f.audit = service.NewAuditService(&stubAuditRepo{s})
	f.rates = service.NewRateService(rateRepo, f.audit, nil)
	f.machines = service.NewMachineService(machineRepo, f.audit)
	f.contracts = service.NewContractService(contractRepo, rateRepo, productionRepo, f.audit)
	f.production = service.NewProductionService(productionRepo, contractRepo, machineRepo, f.audit)
	f.billing = service.NewBillingService(billingRepo, productionRepo, contractRepo, rateRepo, f.audit, f.locker)
	f.reconciliation = service.NewReconciliationService(reconRepo, billingRepo, contractRepo, f.shipments, f.audit, f.dispatcher, tolerance)
	return f
}

const actor = "tester"

var (
	prodDate = "2024-03-01"
	ctx      = context.Background()
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// seedFloor creates a base rate, an active contract, one machine and one
// design carrying the given element rates.
func (f *fixture) seedFloor(base string, elementRates ...string) (contract *model.Contract, machine *model.Machine, design *model.Design) {
	since := time.Now().UTC().Add(-24 * time.Hour)
	if _, err := f.rates.SetBaseRate(ctx, actor, dto.SetBaseRateRequest{RatePerStitch: dec(base), EffectiveFrom: &since}); err != nil {
		panic(err)
	}
	var ids []string
	for i, r := range elementRates {
		e, err := f.rates.CreateElement(ctx, actor, dto.CreateRateElementRequest{
			Name:          "element-" + string(rune('a'+i)),
			RatePerStitch: dec(r),
		})
		if err != nil {
			panic(err)
		}
		ids = append(ids, e.ID.String())
	}

	c, err := f.contracts.CreateContract(ctx, actor, dto.CreateContractRequest{PartyName: "Gul Ahmed", StartDate: "2024-01-01"})
	if err != nil {
		panic(err)
	}
	d, err := f.contracts.CreateDesign(ctx, actor, c.ID, dto.CreateDesignRequest{DesignNumber: "D-100", RateElementIDs: ids})
	if err != nil {
		panic(err)
	}
	if c, err = f.contracts.ActivateContract(ctx, actor, c.ID); err != nil {
		panic(err)
	}
	m, err := f.machines.Create(ctx, actor, dto.CreateMachineRequest{Code: "m-01", Name: "Tajima 20 head"})
	if err != nil {
		panic(err)
	}
	return c, m, d
}

func (f *fixture) record(m *model.Machine, d *model.Design, date, shift string, stitches int64) *model.ProductionEntry {
	e, err := f.production.RecordEntry(ctx, actor, dto.RecordEntryRequest{
		MachineID:      m.ID.String(),
		DesignID:       d.ID.String(),
		ProductionDate: date,
		Shift:          shift,
		ActualStitches: &stitches,
	})
	if err != nil {
		panic(err)
	}
	return e
}

func (f *fixture) bill(c *model.Contract, date, shift string) (*dto.GenerateBillingResponse, error) {
	return f.billing.GenerateBilling(ctx, actor, dto.GenerateBillingRequest{
		ContractID:  c.ID.String(),
		BillingDate: date,
		Shift:       shift,
	})
}
