package database

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(migrations, "migrations")
	assert.NoError(t, err, "expected embedded migrations directory")

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}

	assert.Contains(t, names, "000001_create_tables.up.sql")
	assert.Contains(t, names, "000001_create_tables.down.sql")
}

func Test_escapeLike(t *testing.T) {
	tcases := []struct {
		in       string
		expected string
	}{
		{in: "golang", expected: "golang"},
		{in: "100%", expected: `100\%`},
		{in: "snake_case", expected: `snake\_case`},
		{in: `back\slash`, expected: `back\\slash`},
	}

	for _, tc := range tcases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.expected, escapeLike(tc.in))
		})
	}
}

func Test_isUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: uniqueViolation}))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: uniqueViolation})))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
	assert.False(t, isUniqueViolation(nil))
}
