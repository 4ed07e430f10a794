package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReplaceDBName(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{"postgres://u:p@localhost:5432/postgres?sslmode=disable", "postgres://u:p@localhost:5432/other?sslmode=disable"},
		{"postgres://localhost/postgres", "postgres://localhost/other"},
		{"host=localhost dbname=postgres", "host=localhost dbname=postgres"},
	}
	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			assert.Equal(t, tt.want, ReplaceDBName(tt.dsn, "other"))
		})
	}
}

func TestUniqueDBName(t *testing.T) {
	a, b := uniqueDBName("test"), uniqueDBName("test")
	assert.NotEqual(t, a, b)
	assert.Regexp(t, `^test_[0-9a-f]{16}$`, a)
}
