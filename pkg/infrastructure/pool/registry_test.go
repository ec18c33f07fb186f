package pool

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/quarryhq/quarry/pkg/errors"
	"github.com/quarryhq/quarry/pkg/models"
)

func testParams() models.ConnectionParams {
	return models.ConnectionParams{
		Host:     "localhost",
		Port:     5432,
		Database: "app",
		User:     "svc",
		Password: "secret",
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}
	cfg.setDefaults()

	assert.Equal(t, int32(10), cfg.MaxConns)
	assert.Equal(t, 30*time.Minute, cfg.MaxConnLifetime)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
}

func TestPoolKeyDistinguishesTargets(t *testing.T) {
	a := testParams()
	b := testParams()
	assert.Equal(t, poolKey(a), poolKey(b))

	b.Database = "other"
	assert.NotEqual(t, poolKey(a), poolKey(b))

	c := testParams()
	c.Password = "rotated"
	assert.NotEqual(t, poolKey(a), poolKey(c))
}

func TestConnString(t *testing.T) {
	assert.Equal(t,
		"host=localhost port=5432 dbname=app user=svc password=secret",
		connString(testParams()))

	noPass := testParams()
	noPass.Password = ""
	assert.Equal(t,
		"host=localhost port=5432 dbname=app user=svc",
		connString(noPass))
}

func TestMaskTargetHidesPassword(t *testing.T) {
	masked := maskTarget(testParams())
	assert.Equal(t, "svc@localhost:5432/app", masked)
	assert.NotContains(t, masked, "secret")
}

func TestRegistryReusesPoolPerTarget(t *testing.T) {
	r := NewRegistry(Config{}, zerolog.Nop())
	defer r.Close()

	first, err := r.Get(context.Background(), testParams())
	require.NoError(t, err)
	second, err := r.Get(context.Background(), testParams())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, r.Size())

	other := testParams()
	other.Database = "other"
	third, err := r.Get(context.Background(), other)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, 2, r.Size())
}

func TestRegistryClosed(t *testing.T) {
	r := NewRegistry(Config{}, zerolog.Nop())
	r.Close()

	_, err := r.Get(context.Background(), testParams())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnavailable, pkgerrors.GetCode(err))
	assert.Equal(t, 0, r.Size())
}
