package voucher

import (
	"context"
	"sort"
	"sync"
	"time"

	id "vouchsafe/pkg/domain"
	"vouchsafe/pkg/platform/sentinel"
)

// MemoryStore is an in-memory voucher store for unit tests and local
// development.
type MemoryStore struct {
	mu       sync.RWMutex
	vouchers map[id.VoucherID]*Voucher
}

// NewMemory creates an empty in-memory voucher store.
func NewMemory() *MemoryStore {
	return &MemoryStore{vouchers: make(map[id.VoucherID]*Voucher)}
}

func (s *MemoryStore) Create(_ context.Context, v *Voucher) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.vouchers[v.ID]; exists {
		return sentinel.ErrConflict
	}
	for _, existing := range s.vouchers {
		if existing.ApplicationID == v.ApplicationID {
			return sentinel.ErrConflict
		}
	}
	s.vouchers[v.ID] = cloneVoucher(v)
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, voucherID id.VoucherID) (*Voucher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vouchers[voucherID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneVoucher(v), nil
}

func (s *MemoryStore) FindByApplication(_ context.Context, appID id.ApplicationID) (*Voucher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.vouchers {
		if v.ApplicationID == appID {
			return cloneVoucher(v), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) Update(_ context.Context, v *Voucher) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vouchers[v.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.vouchers[v.ID] = cloneVoucher(v)
	return nil
}

func (s *MemoryStore) MarkRedeemed(_ context.Context, voucherID id.VoucherID, vendorID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vouchers[voucherID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if v.RedeemedAt != nil {
		return sentinel.ErrAlreadyUsed
	}
	stamp := at
	v.RedeemedAt = &stamp
	v.VendorID = vendorID
	v.UpdatedAt = at
	return nil
}

func (s *MemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]*Voucher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Voucher
	for _, v := range s.vouchers {
		if v.UserID == userID {
			out = append(out, cloneVoucher(v))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.Before(out[j].IssuedAt) })
	return out, nil
}

func cloneVoucher(v *Voucher) *Voucher {
	c := *v
	if v.RedeemedAt != nil {
		t := *v.RedeemedAt
		c.RedeemedAt = &t
	}
	return &c
}
