package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"shopmaster/internal/model"
	"shopmaster/internal/notify"
	"shopmaster/internal/repository"
	ws "shopmaster/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// memStore is an in-memory stand-in for the database. Rows are stored by value so a
// snapshot taken at the start of a transaction can be restored on rollback.
type memStore struct {
	mu        sync.Mutex
	txMu      sync.Mutex
	sales     map[uuid.UUID]model.Sale
	customers map[uuid.UUID]model.Customer
	requests  map[uuid.UUID]model.EditRequest
	expenses  map[uuid.UUID]model.Expense
	closings  map[string]model.DailyClosing
	users     map[uuid.UUID]model.User
	activity  []model.ActivityLog

	// failures injected per operation
	failSaleUpdate     error
	failCustomerUpdate error
	failTransition     error
	failRequestCreate  error
}

func newMemStore() *memStore {
	return &memStore{
		sales:     map[uuid.UUID]model.Sale{},
		customers: map[uuid.UUID]model.Customer{},
		requests:  map[uuid.UUID]model.EditRequest{},
		expenses:  map[uuid.UUID]model.Expense{},
		closings:  map[string]model.DailyClosing{},
		users:     map[uuid.UUID]model.User{},
	}
}

type memSnapshot struct {
	sales     map[uuid.UUID]model.Sale
	customers map[uuid.UUID]model.Customer
	requests  map[uuid.UUID]model.EditRequest
	expenses  map[uuid.UUID]model.Expense
	closings  map[string]model.DailyClosing
	users     map[uuid.UUID]model.User
	activity  []model.ActivityLog
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memSnapshot{
		sales:     cloneMap(s.sales),
		customers: cloneMap(s.customers),
		requests:  cloneMap(s.requests),
		expenses:  cloneMap(s.expenses),
		closings:  cloneMap(s.closings),
		users:     cloneMap(s.users),
		activity:  append([]model.ActivityLog(nil), s.activity...),
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sales = snap.sales
	s.customers = snap.customers
	s.requests = snap.requests
	s.expenses = snap.expenses
	s.closings = snap.closings
	s.users = snap.users
	s.activity = snap.activity
}

func (s *memStore) sale(id uuid.UUID) model.Sale {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sales[id]
}

func (s *memStore) customer(id uuid.UUID) model.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.customers[id]
}

func (s *memStore) request(id uuid.UUID) model.EditRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[id]
}

func (s *memStore) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *memStore) activityActions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.activity))
	for _, a := range s.activity {
		out = append(out, a.Action)
	}
	return out
}

// --- TransactionManager ---

type memTxKey struct{}

// memTx serializes transactions and rolls the store back when fn fails.
type memTx struct {
	store *memStore
}

func (m memTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	m.store.txMu.Lock()
	defer m.store.txMu.Unlock()
	snap := m.store.snapshot()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		m.store.restore(snap)
		return err
	}
	return nil
}

// --- Repositories ---

type memSales struct{ s *memStore }

func (r memSales) Create(_ context.Context, sale *model.Sale) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.sales[sale.ID] = *sale
	return nil
}

func (r memSales) FindByID(_ context.Context, id uuid.UUID) (*model.Sale, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sale, ok := r.s.sales[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &sale, nil
}

func (r memSales) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	return r.FindByID(ctx, id)
}

func (r memSales) List(_ context.Context, filter repository.SaleFilter, page, limit int) ([]model.Sale, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Sale
	for _, sale := range r.s.sales {
		if filter.ShopID != "" && sale.ShopID != filter.ShopID {
			continue
		}
		out = append(out, sale)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, int64(len(out)), nil
}

func (r memSales) Update(_ context.Context, sale *model.Sale) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failSaleUpdate != nil {
		return r.s.failSaleUpdate
	}
	r.s.sales[sale.ID] = *sale
	return nil
}

func (r memSales) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.sales, id)
	return nil
}

func (r memSales) SumDueByCustomer(_ context.Context, customerID uuid.UUID) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sum := decimal.Zero
	for _, sale := range r.s.sales {
		if sale.CustomerID != nil && *sale.CustomerID == customerID {
			sum = sum.Add(sale.DueAmount)
		}
	}
	return sum, nil
}

func (r memSales) SumForShop(_ context.Context, shopID string, from, to time.Time) (repository.SaleTotals, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var t repository.SaleTotals
	for _, sale := range r.s.sales {
		if sale.ShopID != shopID || sale.Date.Before(from) || !sale.Date.Before(to) {
			continue
		}
		t.Total = t.Total.Add(sale.TotalAmount)
		t.Paid = t.Paid.Add(sale.PaidAmount)
		t.Due = t.Due.Add(sale.DueAmount)
	}
	return t, nil
}

type memCustomers struct{ s *memStore }

func (r memCustomers) Create(_ context.Context, c *model.Customer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.customers[c.ID] = *c
	return nil
}

func (r memCustomers) Update(_ context.Context, c *model.Customer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failCustomerUpdate != nil {
		return r.s.failCustomerUpdate
	}
	r.s.customers[c.ID] = *c
	return nil
}

func (r memCustomers) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.customers, id)
	return nil
}

func (r memCustomers) FindByID(_ context.Context, id uuid.UUID) (*model.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.customers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (r memCustomers) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	return r.FindByID(ctx, id)
}

func (r memCustomers) List(_ context.Context, area, search string, page, limit int) ([]model.Customer, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Customer
	for _, c := range r.s.customers {
		if area != "" && c.Area != area {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(search)) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, int64(len(out)), nil
}

type memRequests struct{ s *memStore }

func (r memRequests) Create(_ context.Context, req *model.EditRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failRequestCreate != nil {
		return r.s.failRequestCreate
	}
	r.s.requests[req.ID] = *req
	return nil
}

func (r memRequests) FindByID(_ context.Context, id uuid.UUID) (*model.EditRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &req, nil
}

func (r memRequests) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.EditRequest, error) {
	return r.FindByID(ctx, id)
}

func (r memRequests) ListPending(_ context.Context) ([]model.EditRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.EditRequest
	for _, req := range r.s.requests {
		if req.Status == model.EditPending {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r memRequests) List(_ context.Context, filter repository.EditRequestFilter, page, limit int) ([]model.EditRequest, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.EditRequest
	for _, req := range r.s.requests {
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if filter.EntityType != "" && req.EntityType != filter.EntityType {
			continue
		}
		if filter.EntityID != nil && req.EntityID != *filter.EntityID {
			continue
		}
		out = append(out, req)
	}
	return out, int64(len(out)), nil
}

func (r memRequests) Transition(_ context.Context, id uuid.UUID, to model.EditStatus, reviewer string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failTransition != nil {
		return r.s.failTransition
	}
	req, ok := r.s.requests[id]
	if !ok || req.Status != model.EditPending {
		return repository.ErrStatusChanged
	}
	req.Status = to
	req.ReviewedBy = reviewer
	req.ReviewTimestamp = &at
	r.s.requests[id] = req
	return nil
}

type memActivity struct{ s *memStore }

func (r memActivity) Log(_ context.Context, entry *model.ActivityLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.activity = append(r.s.activity, *entry)
	return nil
}

func (r memActivity) List(_ context.Context, action string, page, limit int) ([]model.ActivityLog, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.ActivityLog
	for _, a := range r.s.activity {
		if action == "" || a.Action == action {
			out = append(out, a)
		}
	}
	return out, int64(len(out)), nil
}

type memExpenses struct{ s *memStore }

func (r memExpenses) Create(_ context.Context, e *model.Expense) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.expenses[e.ID] = *e
	return nil
}

func (r memExpenses) FindByID(_ context.Context, id uuid.UUID) (*model.Expense, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.expenses[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &e, nil
}

func (r memExpenses) List(_ context.Context, filter repository.ExpenseFilter, page, limit int) ([]model.Expense, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Expense
	for _, e := range r.s.expenses {
		if filter.ShopID == "" || e.ShopID == filter.ShopID {
			out = append(out, e)
		}
	}
	return out, int64(len(out)), nil
}

func (r memExpenses) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.expenses, id)
	return nil
}

func (r memExpenses) SumForShop(_ context.Context, shopID string, from, to time.Time) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sum := decimal.Zero
	for _, e := range r.s.expenses {
		if e.ShopID == shopID && !e.Date.Before(from) && e.Date.Before(to) {
			sum = sum.Add(e.Amount)
		}
	}
	return sum, nil
}

type memClosings struct{ s *memStore }

func closingKey(shopID, date string) string { return shopID + "/" + date }

func (r memClosings) Create(_ context.Context, c *model.DailyClosing) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c.ID = uuid.New()
	r.s.closings[closingKey(c.ShopID, c.Date)] = *c
	return nil
}

func (r memClosings) Find(_ context.Context, shopID, date string) (*model.DailyClosing, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.closings[closingKey(shopID, date)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (r memClosings) ListByDate(_ context.Context, date string) ([]model.DailyClosing, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.DailyClosing
	for _, c := range r.s.closings {
		if date == "" || c.Date == date {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShopID < out[j].ShopID })
	return out, nil
}

func (r memClosings) Delete(_ context.Context, shopID, date string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := closingKey(shopID, date)
	if _, ok := r.s.closings[key]; !ok {
		return 0, nil
	}
	delete(r.s.closings, key)
	return 1, nil
}

type memUsers struct{ s *memStore }

func (r memUsers) Create(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.users[u.ID] = *u
	return nil
}

func (r memUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r memUsers) List(_ context.Context, page, limit int) ([]model.User, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.User
	for _, u := range r.s.users {
		out = append(out, u)
	}
	return out, int64(len(out)), nil
}

func (r memUsers) Count(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.users)), nil
}

// --- Collaborators ---

type MockAdminNotifier struct {
	mock.Mock
}

func (m *MockAdminNotifier) Enqueue(msg notify.Message) bool {
	args := m.Called(msg)
	return args.Bool(0)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []ws.Event
}

func (p *recordingPublisher) Publish(ev ws.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) collections() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Collection+":"+ev.Action)
	}
	return out
}

// --- Fixtures ---

var (
	owner   = Actor{ID: uuid.New(), Name: "Rahim", Role: model.RoleOwner}
	manager = Actor{ID: uuid.New(), Name: "Karim", Role: model.RoleManager}
	fixedAt = time.Date(2024, 3, 14, 10, 30, 0, 0, time.UTC)
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seedSale(s *memStore, total, paid string) model.Sale {
	sale := model.Sale{
		ID:          uuid.New(),
		Date:        time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
		ShopID:      "1",
		Description: "ceiling fan",
		TotalAmount: dec(total),
		PaidAmount:  dec(paid),
		EditHistory: model.AuditHistory{},
	}
	sale.PaymentType = model.DerivePaymentType(sale.TotalAmount, sale.PaidAmount)
	sale.RecomputeDue()
	s.sales[sale.ID] = sale
	return sale
}

func seedCustomer(s *memStore, name, mobile string) model.Customer {
	c := model.Customer{
		ID:           uuid.New(),
		Name:         name,
		Mobile:       mobile,
		Area:         model.Areas[0],
		AuditHistory: model.AuditHistory{},
	}
	s.customers[c.ID] = c
	return c
}

func commonDeps(s *memStore, pub *recordingPublisher) CommonDeps {
	return CommonDeps{Tx: memTx{store: s}, Activity: memActivity{s: s}, Events: pub}
}
