package billing

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medbill/backend/internal/domain/audit"
	"github.com/medbill/backend/internal/domain/billing"
	"github.com/medbill/backend/internal/domain/shared"
)

// fakeBillRepo is an in-memory BillRepository for service tests
type fakeBillRepo struct {
	mu    sync.Mutex
	bills map[uuid.UUID]*billing.Bill
	// failLockTimes makes the next N SaveWithLock calls conflict
	failLockTimes int
}

func newFakeBillRepo() *fakeBillRepo {
	return &fakeBillRepo{bills: make(map[uuid.UUID]*billing.Bill)}
}

func (r *fakeBillRepo) FindByID(_ context.Context, id uuid.UUID) (*billing.Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bill, ok := r.bills[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *bill
	return &clone, nil
}

func (r *fakeBillRepo) FindByInvoiceNumber(_ context.Context, invoiceNumber string) (*billing.Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, bill := range r.bills {
		if bill.InvoiceNumber == invoiceNumber {
			clone := *bill
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeBillRepo) FindAll(_ context.Context, filter billing.BillFilter) ([]billing.Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []billing.Bill
	for _, bill := range r.bills {
		if filter.Status != nil && bill.Status != *filter.Status {
			continue
		}
		if filter.CenterName != nil && !strings.EqualFold(bill.CenterName, *filter.CenterName) {
			continue
		}
		result = append(result, *bill)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].InvoiceNumber < result[j].InvoiceNumber
	})
	return result, nil
}

func (r *fakeBillRepo) Count(ctx context.Context, filter billing.BillFilter) (int64, error) {
	bills, err := r.FindAll(ctx, filter)
	return int64(len(bills)), err
}

func (r *fakeBillRepo) Save(_ context.Context, bill *billing.Bill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *bill
	r.bills[bill.ID] = &clone
	return nil
}

func (r *fakeBillRepo) SaveWithLock(_ context.Context, bill *billing.Bill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failLockTimes > 0 {
		r.failLockTimes--
		return shared.ErrConcurrencyConflict
	}
	if _, ok := r.bills[bill.ID]; !ok {
		return shared.ErrNotFound
	}
	clone := *bill
	r.bills[bill.ID] = &clone
	return nil
}

func (r *fakeBillRepo) SaveAll(ctx context.Context, bills []*billing.Bill) error {
	for _, bill := range bills {
		if err := r.Save(ctx, bill); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeBillRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bills, id)
	return nil
}

func (r *fakeBillRepo) SumByStatus(_ context.Context, statuses ...billing.BillStatus) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := decimal.Zero
	for _, bill := range r.bills {
		for _, status := range statuses {
			if bill.Status == status {
				sum = sum.Add(bill.BillableAmount().Amount())
			}
		}
	}
	return sum, nil
}

func (r *fakeBillRepo) SumOutstanding(_ context.Context) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := decimal.Zero
	for _, bill := range r.bills {
		if bill.Status.CanApplyPayment() {
			sum = sum.Add(bill.OutstandingAmount)
		}
	}
	return sum, nil
}

func (r *fakeBillRepo) TopCenters(_ context.Context, limit int) ([]billing.CenterTotal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byCenter := make(map[string]*billing.CenterTotal)
	for _, bill := range r.bills {
		if bill.Status == billing.BillStatusCancelled {
			continue
		}
		ct, ok := byCenter[bill.CenterName]
		if !ok {
			ct = &billing.CenterTotal{CenterName: bill.CenterName, CenterType: bill.CenterType}
			byCenter[bill.CenterName] = ct
		}
		ct.BillCount++
		ct.Total = ct.Total.Add(bill.BillableAmount().Amount())
	}
	var result []billing.CenterTotal
	for _, ct := range byCenter {
		result = append(result, *ct)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Total.GreaterThan(result[j].Total)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *fakeBillRepo) MonthlyTotals(_ context.Context, months int) ([]billing.MonthlyTotal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byMonth := make(map[string]*billing.MonthlyTotal)
	for _, bill := range r.bills {
		mt, ok := byMonth[bill.MonthBucket]
		if !ok {
			mt = &billing.MonthlyTotal{MonthBucket: bill.MonthBucket}
			byMonth[bill.MonthBucket] = mt
		}
		mt.BillCount++
		mt.Total = mt.Total.Add(bill.BillableAmount().Amount())
	}
	var result []billing.MonthlyTotal
	for _, mt := range byMonth {
		result = append(result, *mt)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].MonthBucket < result[j].MonthBucket
	})
	_ = months
	return result, nil
}

// fakeUploadRepo is an in-memory UploadRepository
type fakeUploadRepo struct {
	mu      sync.Mutex
	uploads map[uuid.UUID]*billing.Upload
}

func newFakeUploadRepo() *fakeUploadRepo {
	return &fakeUploadRepo{uploads: make(map[uuid.UUID]*billing.Upload)}
}

func (r *fakeUploadRepo) FindByID(_ context.Context, id uuid.UUID) (*billing.Upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	upload, ok := r.uploads[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *upload
	return &clone, nil
}

func (r *fakeUploadRepo) FindAll(_ context.Context, _ shared.Filter) ([]billing.Upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []billing.Upload
	for _, upload := range r.uploads {
		result = append(result, *upload)
	}
	return result, nil
}

func (r *fakeUploadRepo) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	uploads, err := r.FindAll(ctx, filter)
	return int64(len(uploads)), err
}

func (r *fakeUploadRepo) Save(_ context.Context, upload *billing.Upload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *upload
	r.uploads[upload.ID] = &clone
	return nil
}

func (r *fakeUploadRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.uploads, id)
	return nil
}

// fakeAuditRepo collects audit entries for assertions
type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{}
}

func (r *fakeAuditRepo) Save(_ context.Context, entry *audit.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeAuditRepo) FindAll(_ context.Context, _ audit.Filter) ([]audit.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audit.Entry(nil), r.entries...), nil
}

func (r *fakeAuditRepo) Count(_ context.Context, _ audit.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.entries)), nil
}

func (r *fakeAuditRepo) actions() []audit.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	actions := make([]audit.Action, 0, len(r.entries))
	for _, e := range r.entries {
		actions = append(actions, e.Action)
	}
	return actions
}

// fakeArchive captures uploaded artifacts
type fakeArchive struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{objects: make(map[string][]byte)}
}

func (a *fakeArchive) Upload(_ context.Context, key string, data []byte, _ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.objects[key] = data
	return nil
}

func (a *fakeArchive) GenerateDownloadURL(_ context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	return "https://archive.test/" + key, time.Now().Add(expiresIn), nil
}

func (a *fakeArchive) ObjectExists(_ context.Context, key string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.objects[key]
	return ok, nil
}

func (a *fakeArchive) DeleteObject(_ context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.objects, key)
	return nil
}

// fakeMailer records sent messages
type fakeMailer struct {
	mu   sync.Mutex
	sent []OutgoingMail
}

func (m *fakeMailer) Send(_ context.Context, msg OutgoingMail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}
