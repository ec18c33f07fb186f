package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	pkgerrors "github.com/quarryhq/quarry/pkg/errors"
	"github.com/quarryhq/quarry/pkg/infrastructure/pool"
	"github.com/quarryhq/quarry/pkg/models"
)

func TestIdentifierPattern(t *testing.T) {
	valid := []string{"users", "user_accounts", "_private", "T1"}
	for _, name := range valid {
		assert.True(t, identifierPattern.MatchString(name), name)
	}

	invalid := []string{"", "1users", "users; drop table x", `users"`, "user-accounts", "a.b"}
	for _, name := range invalid {
		assert.False(t, identifierPattern.MatchString(name), name)
	}
}

func TestSnapshotTableRejectsBadIdentifier(t *testing.T) {
	repo := NewMetadataRepository(pool.NewRegistry(pool.Config{}, zerolog.Nop()), time.Second, zerolog.Nop())

	_, err := repo.SnapshotTable(context.Background(), models.ConnectionParams{}, "users; drop table x", 10)
	assert.Equal(t, pkgerrors.CodeInvalidRequest, pkgerrors.GetCode(err))
}

func TestNormalizeValue(t *testing.T) {
	ts := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-15T10:30:00Z", normalizeValue(ts))

	assert.Equal(t, "raw", normalizeValue([]byte("raw")))
	assert.Equal(t, int64(7), normalizeValue(int64(7)))
	assert.Equal(t, "s", normalizeValue("s"))
	assert.Nil(t, normalizeValue(nil))
}
