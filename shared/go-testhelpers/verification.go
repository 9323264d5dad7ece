package testhelpers

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/poofware/todo-service/shared/go-models"
)

// FakeSMSVerificationRepository is an in-memory code ledger. Confirm holds
// the mutex for its whole read-modify-write, which gives the same single
// winner guarantee as the SQL compare-and-swap.
type FakeSMSVerificationRepository struct {
	mu    sync.Mutex
	codes []*models.SMSVerificationCode
	seq   time.Duration
}

func NewFakeSMSVerificationRepository() *FakeSMSVerificationRepository {
	return &FakeSMSVerificationRepository{}
}

func (r *FakeSMSVerificationRepository) CreateCode(ctx context.Context, rec *models.SMSVerificationCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	// Strictly increasing creation times keep "newest" well defined.
	r.seq++
	rec.CreatedAt = time.Now().Add(r.seq)
	c := *rec
	r.codes = append(r.codes, &c)
	return nil
}

func (r *FakeSMSVerificationRepository) GetLatest(ctx context.Context, accountID uuid.UUID) (*models.SMSVerificationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *models.SMSVerificationCode
	for _, c := range r.codes {
		if c.AccountID != nil && *c.AccountID == accountID {
			if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
				latest = c
			}
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *FakeSMSVerificationRepository) HasOutstanding(ctx context.Context, accountID uuid.UUID, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.codes {
		if c.AccountID != nil && *c.AccountID == accountID && c.IsOutstanding(now) {
			return true, nil
		}
	}
	return false, nil
}

func (r *FakeSMSVerificationRepository) HasConfirmedForPhone(ctx context.Context, phone string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.codes {
		if c.Phone == phone && c.IsConfirmed {
			return true, nil
		}
	}
	return false, nil
}

func (r *FakeSMSVerificationRepository) Confirm(ctx context.Context, accountID uuid.UUID, code string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var newest *models.SMSVerificationCode
	for _, c := range r.codes {
		if c.AccountID == nil || *c.AccountID != accountID || c.Code != code || !c.IsOutstanding(now) {
			continue
		}
		if newest == nil || c.CreatedAt.After(newest.CreatedAt) {
			newest = c
		}
	}
	if newest == nil {
		return false, nil
	}
	newest.IsConfirmed = true
	at := now
	newest.ConfirmedAt = &at
	return true, nil
}

func (r *FakeSMSVerificationRepository) CleanupBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.codes[:0]
	var removed int64
	for _, c := range r.codes {
		if c.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	r.codes = kept
	return removed, nil
}

// All returns copies of every stored code in insertion order.
func (r *FakeSMSVerificationRepository) All() []models.SMSVerificationCode {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.SMSVerificationCode, 0, len(r.codes))
	for _, c := range r.codes {
		out = append(out, *c)
	}
	return out
}

// Expire moves every code for accountID into the past.
func (r *FakeSMSVerificationRepository) Expire(accountID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.codes {
		if c.AccountID != nil && *c.AccountID == accountID {
			c.ExpiresAt = time.Now().Add(-time.Second)
		}
	}
}
