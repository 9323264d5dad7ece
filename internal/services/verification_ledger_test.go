package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/poofware/todo-service/shared/go-models"
	"github.com/poofware/todo-service/shared/go-testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerificationLedger_IssueFormatAndExpiry(t *testing.T) {
	cfg := testConfig()
	ledger := NewVerificationLedger(testhelpers.NewFakeSMSVerificationRepository(), cfg)
	acct := &models.Account{ID: uuid.New(), Phone: testPhone}

	before := time.Now()
	rec, err := ledger.Issue(context.Background(), acct, testPhone)
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^[0-9]{5}$`), rec.Code)
	assert.False(t, rec.IsConfirmed)
	assert.WithinDuration(t, before.Add(cfg.VerificationCodeExpiry), rec.ExpiresAt, time.Second)
	require.NotNil(t, rec.AccountID)
	assert.Equal(t, acct.ID, *rec.AccountID)
}

func TestVerificationLedger_DigitsCoverAllValues(t *testing.T) {
	seen := map[rune]bool{}
	for i := 0; i < 200 && len(seen) < 10; i++ {
		code, err := generateVerificationCode(5)
		require.NoError(t, err)
		for _, r := range code {
			seen[r] = true
		}
	}
	assert.Len(t, seen, 10)
}

func TestVerificationLedger_ConfirmRules(t *testing.T) {
	repo := testhelpers.NewFakeSMSVerificationRepository()
	ledger := NewVerificationLedger(repo, testConfig())
	ctx := context.Background()
	acct := &models.Account{ID: uuid.New(), Phone: testPhone}

	rec, err := ledger.Issue(ctx, acct, testPhone)
	require.NoError(t, err)

	outstanding, err := ledger.HasOutstanding(ctx, acct.ID)
	require.NoError(t, err)
	assert.True(t, outstanding)

	ok, err := ledger.Confirm(ctx, acct.ID, rec.Code+"0")
	require.NoError(t, err)
	assert.False(t, ok, "length mismatch never matches")

	ok, err = ledger.Confirm(ctx, uuid.New(), rec.Code)
	require.NoError(t, err)
	assert.False(t, ok, "codes are scoped to their account")

	ok, err = ledger.Confirm(ctx, acct.ID, rec.Code)
	require.NoError(t, err)
	assert.True(t, ok)

	confirmed, err := ledger.HasConfirmed(ctx, testPhone)
	require.NoError(t, err)
	assert.True(t, confirmed)

	outstanding, err = ledger.HasOutstanding(ctx, acct.ID)
	require.NoError(t, err)
	assert.False(t, outstanding)
}

func TestVerificationLedger_ExpiredNeverMatches(t *testing.T) {
	repo := testhelpers.NewFakeSMSVerificationRepository()
	ledger := NewVerificationLedger(repo, testConfig())
	ctx := context.Background()
	acct := &models.Account{ID: uuid.New(), Phone: testPhone}

	rec, err := ledger.Issue(ctx, acct, testPhone)
	require.NoError(t, err)
	repo.Expire(acct.ID)

	ok, err := ledger.Confirm(ctx, acct.ID, rec.Code)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, repo.All()[0].IsConfirmed)
}
