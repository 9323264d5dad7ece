package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/poofware/todo-service/shared/go-utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioclient "github.com/twilio/twilio-go/client"
	lookupsv2 "github.com/twilio/twilio-go/rest/lookups/v2"
)

func TestPhoneValidator_Normalize(t *testing.T) {
	v := NewPhoneValidator()
	ctx := context.Background()

	got, err := v.Normalize(ctx, " +998 90 123 45 67 ")
	require.NoError(t, err)
	assert.Equal(t, testPhone, got)

	for _, raw := range []string{"", "abc", "+1", "998901234567", "+99890123", "+0000000000"} {
		_, err := v.Normalize(ctx, raw)
		assert.ErrorIs(t, err, utils.ErrInvalidPhone, raw)
	}
}

type fakeLookup struct {
	calls int
	res   *lookupsv2.LookupsV2PhoneNumber
	err   error
}

func (l *fakeLookup) FetchPhoneNumber(string, *lookupsv2.FetchPhoneNumberParams) (*lookupsv2.LookupsV2PhoneNumber, error) {
	l.calls++
	return l.res, l.err
}

func TestTwilioPhoneValidator(t *testing.T) {
	cfg := testConfig()
	ctx := context.Background()

	lookup := &fakeLookup{res: &lookupsv2.LookupsV2PhoneNumber{Valid: utils.Ptr(true)}}
	v := NewTwilioPhoneValidator(NewPhoneValidator(), lookup, cfg)
	got, err := v.Normalize(ctx, testPhone)
	require.NoError(t, err)
	assert.Equal(t, testPhone, got)

	lookup.res = &lookupsv2.LookupsV2PhoneNumber{Valid: utils.Ptr(false)}
	_, err = v.Normalize(ctx, testPhone)
	assert.ErrorIs(t, err, utils.ErrInvalidPhone)

	lookup.res, lookup.err = nil, &twilioclient.TwilioRestError{Status: http.StatusNotFound}
	_, err = v.Normalize(ctx, testPhone)
	assert.ErrorIs(t, err, utils.ErrInvalidPhone)

	lookup.err = &twilioclient.TwilioRestError{Status: http.StatusInternalServerError}
	_, err = v.Normalize(ctx, testPhone)
	assert.ErrorIs(t, err, utils.ErrExternalServiceFailure)

	lookup.err = errors.New("network")
	_, err = v.Normalize(ctx, testPhone)
	assert.ErrorIs(t, err, utils.ErrExternalServiceFailure)

	before := lookup.calls
	_, err = v.Normalize(ctx, "nope")
	assert.ErrorIs(t, err, utils.ErrInvalidPhone)
	assert.Equal(t, before, lookup.calls, "local rejection skips the remote call")
}

func TestTwilioPhoneValidator_FakePhoneSkipsLookup(t *testing.T) {
	cfg := testConfig()
	cfg.LDFlag_AcceptFakePhones = true
	lookup := &fakeLookup{err: errors.New("should not be called")}
	v := NewTwilioPhoneValidator(NewPhoneValidator(), lookup, cfg)

	got, err := v.Normalize(context.Background(), utils.TestPhoneNumberBase+"1234")
	require.NoError(t, err)
	assert.Equal(t, utils.TestPhoneNumberBase+"1234", got)
	assert.Zero(t, lookup.calls)
}
