package app

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/poofware/todo-service/internal/app/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractUpMigration(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE a (id INT);\n-- +migrate Down\nDROP TABLE a;\n"
	up := ExtractUpMigration(content)
	assert.Contains(t, up, "CREATE TABLE a")
	assert.NotContains(t, up, "DROP TABLE")

	assert.Equal(t, "SELECT 1;", ExtractUpMigration("SELECT 1;"))
	assert.Equal(t, "\nSELECT 2;", ExtractUpMigration("-- +migrate Up\nSELECT 2;"))
}

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := fs.ReadDir(migrations.FS, ".")
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.NotEmpty(t, names)

	all := ""
	for _, n := range names {
		b, err := fs.ReadFile(migrations.FS, n)
		require.NoError(t, err)
		all += ExtractUpMigration(string(b))
	}
	for _, table := range []string{"accounts", "sms_verification_codes", "refresh_tokens", "blacklisted_tokens", "tasks", "rate_limit_attempts"} {
		assert.True(t, strings.Contains(all, "CREATE TABLE IF NOT EXISTS "+table+" "), table)
	}
	assert.Contains(t, all, "accounts_email_lower_idx")
	assert.Contains(t, all, "ON DELETE CASCADE")
}
