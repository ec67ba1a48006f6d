package store

import (
	"context"
	"slices"
	"sort"
	"sync"

	"condo/internal/billing/models"
	catalogmodels "condo/internal/catalog/models"
	id "condo/pkg/domain"
	"condo/pkg/platform/sentinel"
	"condo/pkg/platform/tx"
)

// InMemory keeps fees and payments in maps. Application totals are derived
// from the stored payments on every read.
type InMemory struct {
	mu       sync.RWMutex
	fees     map[id.FeeID]*models.Fee
	payments map[id.PaymentID]*models.Payment
}

func NewInMemory() *InMemory {
	return &InMemory{
		fees:     make(map[id.FeeID]*models.Fee),
		payments: make(map[id.PaymentID]*models.Payment),
	}
}

func cloneFee(f *models.Fee) *models.Fee {
	c := *f
	c.Items = slices.Clone(f.Items)
	return &c
}

func clonePayment(p *models.Payment) *models.Payment {
	c := *p
	if p.PaymentTypeID != nil {
		v := *p.PaymentTypeID
		c.PaymentTypeID = &v
	}
	c.Applications = slices.Clone(p.Applications)
	return &c
}

func (s *InMemory) appliedTo(feeID id.FeeID) int64 {
	var total int64
	for _, p := range s.payments {
		for _, a := range p.Applications {
			if a.FeeID == feeID {
				total += a.AppliedAmount
			}
		}
	}
	return total
}

func (s *InMemory) readFee(f *models.Fee) *models.Fee {
	c := cloneFee(f)
	c.Applied = s.appliedTo(f.ID)
	return c
}

// restoreFees puts back fee snapshots, deleting entries whose snapshot is nil.
func (s *InMemory) restoreFees(prev map[id.FeeID]*models.Fee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for feeID, f := range prev {
		if f == nil {
			delete(s.fees, feeID)
			continue
		}
		s.fees[feeID] = f
	}
}

func (s *InMemory) restorePayments(prev map[id.PaymentID]*models.Payment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for paymentID, p := range prev {
		if p == nil {
			delete(s.payments, paymentID)
			continue
		}
		s.payments[paymentID] = p
	}
}

// stripApplications removes applications to feeIDs from every payment and
// returns the payments as they were. Caller holds the write lock.
func (s *InMemory) stripApplications(feeIDs []id.FeeID) map[id.PaymentID]*models.Payment {
	prev := make(map[id.PaymentID]*models.Payment)
	for paymentID, p := range s.payments {
		kept := p.Applications[:0:0]
		for _, a := range p.Applications {
			if !slices.Contains(feeIDs, a.FeeID) {
				kept = append(kept, a)
			}
		}
		if len(kept) == len(p.Applications) {
			continue
		}
		prev[paymentID] = p
		next := clonePayment(p)
		next.Applications = kept
		s.payments[paymentID] = next
	}
	return prev
}

func (s *InMemory) CreateFee(ctx context.Context, f *models.Fee) error {
	s.mu.Lock()
	if _, ok := s.fees[f.ID]; ok {
		s.mu.Unlock()
		return sentinel.ErrDuplicate
	}
	s.fees[f.ID] = cloneFee(f)
	s.mu.Unlock()

	tx.AddUndo(ctx, func() { s.restoreFees(map[id.FeeID]*models.Fee{f.ID: nil}) })
	return nil
}

func (s *InMemory) FindFee(_ context.Context, feeID id.FeeID) (*models.Fee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.fees[feeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.readFee(f), nil
}

// LockFees is a no-op. Billing transactions carry no lock key, so the memory
// runner already serializes them on a single shard.
func (s *InMemory) LockFees(_ context.Context, _ []id.FeeID) error {
	return nil
}

// ListFees orders by due date, oldest first.
func (s *InMemory) ListFees(_ context.Context, filter models.FeeFilter) ([]*models.Fee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Fee, 0)
	for _, f := range s.fees {
		if filter.Matches(f) {
			out = append(out, s.readFee(f))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate.Time) {
			return out[i].DueDate.Before(out[j].DueDate.Time)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateFee replaces the fee row and its items.
func (s *InMemory) UpdateFee(ctx context.Context, f *models.Fee) error {
	s.mu.Lock()
	prev, ok := s.fees[f.ID]
	if !ok {
		s.mu.Unlock()
		return sentinel.ErrNotFound
	}
	s.fees[f.ID] = cloneFee(f)
	s.mu.Unlock()

	tx.AddUndo(ctx, func() { s.restoreFees(map[id.FeeID]*models.Fee{f.ID: prev}) })
	return nil
}

// DeleteFee removes the fee with its items and the payment applications to it.
func (s *InMemory) DeleteFee(ctx context.Context, feeID id.FeeID) error {
	s.mu.Lock()
	prev, ok := s.fees[feeID]
	if !ok {
		s.mu.Unlock()
		return sentinel.ErrNotFound
	}
	delete(s.fees, feeID)
	prevPayments := s.stripApplications([]id.FeeID{feeID})
	s.mu.Unlock()

	tx.AddUndo(ctx, func() {
		s.restoreFees(map[id.FeeID]*models.Fee{feeID: prev})
		s.restorePayments(prevPayments)
	})
	return nil
}

func (s *InMemory) DeleteFeesByUnit(ctx context.Context, unitID id.UnitID) error {
	s.mu.Lock()
	prev := make(map[id.FeeID]*models.Fee)
	var feeIDs []id.FeeID
	for feeID, f := range s.fees {
		if f.UnitID == unitID {
			prev[feeID] = f
			feeIDs = append(feeIDs, feeID)
			delete(s.fees, feeID)
		}
	}
	prevPayments := s.stripApplications(feeIDs)
	s.mu.Unlock()

	if len(prev) > 0 {
		tx.AddUndo(ctx, func() {
			s.restoreFees(prev)
			s.restorePayments(prevPayments)
		})
	}
	return nil
}

func (s *InMemory) AppliedTotal(_ context.Context, feeID id.FeeID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.appliedTo(feeID), nil
}

func (s *InMemory) missingFee(p *models.Payment) bool {
	for _, a := range p.Applications {
		if _, ok := s.fees[a.FeeID]; !ok {
			return true
		}
	}
	return false
}

func (s *InMemory) CreatePayment(ctx context.Context, p *models.Payment) error {
	s.mu.Lock()
	if _, ok := s.payments[p.ID]; ok {
		s.mu.Unlock()
		return sentinel.ErrDuplicate
	}
	if s.missingFee(p) {
		s.mu.Unlock()
		return sentinel.ErrReferenced
	}
	s.payments[p.ID] = clonePayment(p)
	s.mu.Unlock()

	tx.AddUndo(ctx, func() { s.restorePayments(map[id.PaymentID]*models.Payment{p.ID: nil}) })
	return nil
}

func (s *InMemory) FindPayment(_ context.Context, paymentID id.PaymentID) (*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[paymentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clonePayment(p), nil
}

// ListPayments returns the most recent payments first.
func (s *InMemory) ListPayments(_ context.Context) ([]*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Payment, 0, len(s.payments))
	for _, p := range s.payments {
		out = append(out, clonePayment(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaidAt.After(out[j].PaidAt) })
	return out, nil
}

// UpdatePayment replaces the payment row and its applications.
func (s *InMemory) UpdatePayment(ctx context.Context, p *models.Payment) error {
	s.mu.Lock()
	prev, ok := s.payments[p.ID]
	if !ok {
		s.mu.Unlock()
		return sentinel.ErrNotFound
	}
	if s.missingFee(p) {
		s.mu.Unlock()
		return sentinel.ErrReferenced
	}
	s.payments[p.ID] = clonePayment(p)
	s.mu.Unlock()

	tx.AddUndo(ctx, func() { s.restorePayments(map[id.PaymentID]*models.Payment{p.ID: prev}) })
	return nil
}

func (s *InMemory) DeletePayment(ctx context.Context, paymentID id.PaymentID) error {
	s.mu.Lock()
	prev, ok := s.payments[paymentID]
	if !ok {
		s.mu.Unlock()
		return sentinel.ErrNotFound
	}
	delete(s.payments, paymentID)
	s.mu.Unlock()

	tx.AddUndo(ctx, func() { s.restorePayments(map[id.PaymentID]*models.Payment{paymentID: prev}) })
	return nil
}

// FeesUsing reports whether any fee references a fee type or fee status.
func (s *InMemory) FeesUsing(_ context.Context, kind catalogmodels.Kind, entryID id.CatalogID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.fees {
		switch kind {
		case catalogmodels.FeeTypes:
			if f.FeeTypeID == entryID {
				return true, nil
			}
		case catalogmodels.FeeStatuses:
			if f.StatusID == entryID {
				return true, nil
			}
		}
	}
	return false, nil
}

// ClearPaymentType nulls the payment type on payments that use it.
func (s *InMemory) ClearPaymentType(ctx context.Context, entryID id.CatalogID) error {
	s.mu.Lock()
	prev := make(map[id.PaymentID]*models.Payment)
	for paymentID, p := range s.payments {
		if p.PaymentTypeID != nil && *p.PaymentTypeID == entryID {
			prev[paymentID] = p
			next := clonePayment(p)
			next.PaymentTypeID = nil
			s.payments[paymentID] = next
		}
	}
	s.mu.Unlock()

	if len(prev) > 0 {
		tx.AddUndo(ctx, func() { s.restorePayments(prev) })
	}
	return nil
}
