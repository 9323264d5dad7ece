package controllers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidator_UsernameRule(t *testing.T) {
	type form struct {
		Username string `validate:"required,username"`
	}

	for _, ok := range []string{"alice", "a.l-i+c_e@x", "A1"} {
		assert.NoError(t, validate.Struct(form{Username: ok}), ok)
	}
	for _, bad := range []string{"no spaces", "semi;colon", strings.Repeat("a", 151)} {
		assert.Error(t, validate.Struct(form{Username: bad}), bad)
	}

	assert.NotPanics(t, func() { newValidator() })
}
