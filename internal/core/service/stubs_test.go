package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/travelog/partner-lifecycle/internal/core/domain"
	"github.com/travelog/partner-lifecycle/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory account store
// ---------------------------------------------------------------------------

type stubAccountRepo struct {
	mu      sync.Mutex
	byID    map[string]*domain.Account
	patches []ports.AccountPatch

	findByCodeCalls int
	findErr         error
	updateErr       error
	createErr       error

	// onUpdate runs after every successful Update, outside the lock, the way
	// a change feed would observe the write.
	onUpdate func(before, after *domain.Account)
}

func newStubAccountRepo(accounts ...*domain.Account) *stubAccountRepo {
	r := &stubAccountRepo{byID: make(map[string]*domain.Account)}
	for _, a := range accounts {
		r.byID[a.ID] = a.Clone()
	}
	return r
}

func (r *stubAccountRepo) Create(_ context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if _, ok := r.byID[a.ID]; ok {
		return domain.ErrAccountExists
	}
	r.byID[a.ID] = a.Clone()
	return nil
}

func (r *stubAccountRepo) FindByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	a, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return a.Clone(), nil
}

func (r *stubAccountRepo) FindByOrderCode(_ context.Context, code int64) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findByCodeCalls++
	if r.findErr != nil {
		return nil, r.findErr
	}
	var matches []*domain.Account
	for _, a := range r.byID {
		if a.IsPartner() && a.PaymentOrderCode != nil && *a.PaymentOrderCode == code {
			matches = append(matches, a)
		}
	}
	switch len(matches) {
	case 0:
		return nil, domain.ErrAccountNotFound
	case 1:
		return matches[0].Clone(), nil
	}
	return nil, domain.ErrAmbiguousOrderCode
}

func (r *stubAccountRepo) Update(_ context.Context, id string, patch ports.AccountPatch) (*domain.Account, *domain.Account, error) {
	r.mu.Lock()
	if r.updateErr != nil {
		r.mu.Unlock()
		return nil, nil, r.updateErr
	}
	cur, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return nil, nil, domain.ErrAccountNotFound
	}
	if err := patch.Precondition(cur); err != nil {
		r.mu.Unlock()
		return nil, nil, err
	}
	before := cur.Clone()
	after := cur.Clone()
	if patch.Status != nil {
		after.Status = *patch.Status
	}
	if patch.PaymentOrderCode != nil {
		code := *patch.PaymentOrderCode
		after.PaymentOrderCode = &code
	}
	if now := time.Now().UTC(); now.After(after.UpdatedAt) {
		after.UpdatedAt = now
	}
	r.byID[id] = after.Clone()
	r.patches = append(r.patches, patch)
	hook := r.onUpdate
	r.mu.Unlock()

	if hook != nil {
		hook(before.Clone(), after.Clone())
	}
	return before, after, nil
}

func (r *stubAccountRepo) List(_ context.Context, f ports.ListAccountsFilter) ([]*domain.Account, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, 0, r.findErr
	}
	var matched []*domain.Account
	for _, a := range r.byID {
		if f.UserType != "" && a.UserType != f.UserType {
			continue
		}
		if f.PartnerStatus != "" && (!a.IsPartner() || a.Status.Partner != f.PartnerStatus) {
			continue
		}
		matched = append(matched, a.Clone())
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := int64(len(matched))
	start := (f.Page - 1) * f.Limit
	if start >= len(matched) {
		return []*domain.Account{}, total, nil
	}
	end := start + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *stubAccountRepo) get(id string) *domain.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id].Clone()
}

func (r *stubAccountRepo) patchCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.patches)
}

// ---------------------------------------------------------------------------
// Collaborators
// ---------------------------------------------------------------------------

type stubPayments struct {
	mu        sync.Mutex
	requests  []domain.PaymentRequest
	cancelled []int64
	createErr error
	cancelErr error
	// codeAtCall records the order code the store held when the provider was called.
	store      *stubAccountRepo
	codeAtCall []*int64
}

func (p *stubPayments) CreatePaymentLink(_ context.Context, req domain.PaymentRequest) (*domain.PaymentLink, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.store != nil {
		for _, a := range p.store.byIDSnapshot() {
			if a.PaymentOrderCode != nil && *a.PaymentOrderCode == req.OrderCode {
				code := *a.PaymentOrderCode
				p.codeAtCall = append(p.codeAtCall, &code)
			}
		}
	}
	if p.createErr != nil {
		return nil, p.createErr
	}
	return &domain.PaymentLink{
		OrderCode:     req.OrderCode,
		PaymentLinkID: "plink-1",
		CheckoutURL:   "https://pay.payos.vn/web/checkout-" + itoa(req.OrderCode),
		Status:        "PENDING",
	}, nil
}

func (p *stubPayments) CancelPaymentLink(_ context.Context, orderCode int64, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, orderCode)
	return p.cancelErr
}

func (p *stubPayments) requestCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func (r *stubAccountRepo) byIDSnapshot() []*domain.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Account, 0, len(r.byID))
	for _, a := range r.byID {
		out = append(out, a.Clone())
	}
	return out
}

type stubMailer struct {
	mu      sync.Mutex
	sent    []ports.Email
	sendErr error
}

func (m *stubMailer) Send(_ context.Context, e ports.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, e)
	return nil
}

func (m *stubMailer) emails() []ports.Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.Email(nil), m.sent...)
}

func (m *stubMailer) countSubject(subject string) int {
	n := 0
	for _, e := range m.emails() {
		if e.Subject == subject {
			n++
		}
	}
	return n
}

type stubCodes struct {
	mu   sync.Mutex
	next int64
}

func (c *stubCodes) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next++
	return c.next
}

type stubDedup struct {
	mu       sync.Mutex
	seen     map[string]bool
	claimErr error
}

func (d *stubDedup) Claim(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.claimErr != nil {
		return false, d.claimErr
	}
	if d.seen == nil {
		d.seen = make(map[string]bool)
	}
	if d.seen[id] {
		return false, nil
	}
	d.seen[id] = true
	return true, nil
}

type stubEvents struct {
	mu         sync.Mutex
	events     []domain.StatusChangedEvent
	publishErr error
}

func (e *stubEvents) PublishStatusChanged(_ context.Context, ev domain.StatusChangedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
	return e.publishErr
}

type stubVerifier struct {
	err   error
	calls int
}

func (v *stubVerifier) VerifyWebhookData(_ json.RawMessage, _ string) error {
	v.calls++
	return v.err
}

var errBoom = errors.New("boom")

func itoa(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

const (
	subjectPaymentRequested = "Hồ sơ đã được duyệt - Vui lòng thanh toán"
	subjectActivated        = "Kích hoạt tài khoản thành công!"
	subjectRejected         = "Thông báo từ chối hồ sơ"
)

func partnerAccount(id string, status domain.PartnerStatus) *domain.Account {
	now := time.Now().UTC().Add(-time.Hour)
	return &domain.Account{
		ID:          id,
		Email:       id + "@agency.vn",
		PhoneNumber: "+84 912 345 678",
		AgencyName:  "Agency " + id,
		DisplayName: "Owner " + id,
		UserType:    domain.UserTypePartner,
		Status:      domain.PartnerState(status),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func customerAccount(id string, enabled bool) *domain.Account {
	now := time.Now().UTC().Add(-time.Hour)
	return &domain.Account{
		ID:          id,
		Email:       id + "@mail.vn",
		DisplayName: "Customer " + id,
		UserType:    domain.UserTypeCustomer,
		Status:      domain.EnabledState(enabled),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func withStatus(a *domain.Account, s domain.PartnerStatus) *domain.Account {
	c := a.Clone()
	c.Status = domain.PartnerState(s)
	return c
}

func withOrderCode(a *domain.Account, code int64) *domain.Account {
	c := a.Clone()
	c.PaymentOrderCode = &code
	return c
}
