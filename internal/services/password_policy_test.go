package services

import (
	"errors"
	"strings"
	"testing"

	"github.com/poofware/todo-service/shared/go-utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPasswordPolicy(t *testing.T) {
	policy := NewDefaultPasswordPolicy()
	attrs := PasswordAttributes{Username: "alice", Phone: "+998935550011", Email: "alice.smith@example.com"}

	cases := []struct {
		name     string
		password string
		reasons  []string
	}{
		{"strong", "Str0ngPass!", nil},
		{"too short", "Ab1!x", []string{ReasonTooShort}},
		{"numeric and common", "12345678", []string{ReasonEntirelyNum, ReasonTooCommon}},
		{"common", "Password1", []string{ReasonTooCommon}},
		{"similar to username", "alice123", []string{ReasonTooSimilar}},
		{"similar to email part", "alicesmith", []string{ReasonTooSimilar}},
		{"similar to phone", "998935550011x", []string{ReasonTooSimilar}},
		{"longer than bcrypt accepts", strings.Repeat("Zq7!", 21), []string{ReasonTooLong}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := policy.Validate(tc.password, attrs)
			if tc.reasons == nil {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, utils.ErrWeakPassword)
			var weak *utils.WeakPasswordError
			require.True(t, errors.As(err, &weak))
			assert.ElementsMatch(t, tc.reasons, weak.Reasons)
		})
	}
}

func TestSimilarityRatio(t *testing.T) {
	assert.InDelta(t, 1.0, similarityRatio("abcd", "abcd"), 1e-9)
	assert.InDelta(t, 0.0, similarityRatio("abcd", "wxyz"), 1e-9)
	// Same value difflib.SequenceMatcher("abcd", "bcde").ratio() yields.
	assert.InDelta(t, 0.75, similarityRatio("abcd", "bcde"), 1e-9)
	assert.InDelta(t, 1.0, similarityRatio("", ""), 1e-9)
}

func TestCommonPasswordsLoaded(t *testing.T) {
	set := loadCommonPasswords(commonPasswordsRaw)
	assert.Contains(t, set, "password")
	assert.Contains(t, set, "qwerty")
	assert.NotContains(t, set, "")
}
