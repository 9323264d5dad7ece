package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/nyaruka/phonenumbers"
	"github.com/poofware/todo-service/internal/config"
	"github.com/poofware/todo-service/shared/go-utils"
	twilioclient "github.com/twilio/twilio-go/client"
	lookupsv2 "github.com/twilio/twilio-go/rest/lookups/v2"
)

// PhoneValidator checks a raw phone number and returns its E.164 form.
// Rejections surface as utils.ErrInvalidPhone.
type PhoneValidator interface {
	Normalize(ctx context.Context, raw string) (string, error)
}

type libPhoneValidator struct{}

// NewPhoneValidator validates against the libphonenumber metadata. Numbers
// must carry their international prefix.
func NewPhoneValidator() PhoneValidator {
	return libPhoneValidator{}
}

func (libPhoneValidator) Normalize(_ context.Context, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "+") {
		return "", utils.ErrInvalidPhone
	}
	num, err := phonenumbers.Parse(raw, "")
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", utils.ErrInvalidPhone
	}
	e164 := phonenumbers.Format(num, phonenumbers.E164)
	if !utils.IsE164(e164) {
		return "", utils.ErrInvalidPhone
	}
	return e164, nil
}

// PhoneLookup is the Twilio Lookups v2 call used by the remote validator.
type PhoneLookup interface {
	FetchPhoneNumber(phoneNumber string, params *lookupsv2.FetchPhoneNumberParams) (*lookupsv2.LookupsV2PhoneNumber, error)
}

type twilioPhoneValidator struct {
	local  PhoneValidator
	lookup PhoneLookup
	cfg    *config.Config
}

// NewTwilioPhoneValidator runs local validation first and then asks Twilio
// whether the number exists. Test numbers skip the remote call.
func NewTwilioPhoneValidator(local PhoneValidator, lookup PhoneLookup, cfg *config.Config) PhoneValidator {
	return &twilioPhoneValidator{local: local, lookup: lookup, cfg: cfg}
}

func (v *twilioPhoneValidator) Normalize(ctx context.Context, raw string) (string, error) {
	phone, err := v.local.Normalize(ctx, raw)
	if err != nil {
		return "", err
	}
	if IsFakePhone(v.cfg, phone) {
		return phone, nil
	}

	res, err := v.lookup.FetchPhoneNumber(phone, &lookupsv2.FetchPhoneNumberParams{})
	if err != nil {
		var restErr *twilioclient.TwilioRestError
		if errors.As(err, &restErr) {
			if restErr.Status == http.StatusNotFound {
				return "", utils.ErrInvalidPhone
			}
			return "", fmt.Errorf("%w: twilio lookup failed: %d %s",
				utils.ErrExternalServiceFailure, restErr.Status, restErr.Error())
		}
		return "", fmt.Errorf("%w: twilio lookup: %v", utils.ErrExternalServiceFailure, err)
	}
	if res != nil && res.Valid != nil && !*res.Valid {
		return "", utils.ErrInvalidPhone
	}
	return phone, nil
}
