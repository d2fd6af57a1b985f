package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/telesales-cli/internal/config"
	"github.com/sells-group/telesales-cli/internal/loader"
	"github.com/sells-group/telesales-cli/internal/model"
)

func setTestConfig(t *testing.T) {
	t.Helper()
	old := cfg
	t.Cleanup(func() { cfg = old })
	cfg = &config.Config{
		Store:  config.StoreConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "test.db")},
		Loader: config.LoaderConfig{Mode: "mock", MockSeed: 1, MockPoolSize: 5},
		Output: config.OutputConfig{Dir: t.TempDir(), Prefix: "CBTH"},
		Notify: config.NotifyConfig{TimeoutSecs: 5, PerMinute: 30},
	}
}

func TestInitStoreSQLite(t *testing.T) {
	setTestConfig(t)

	st, err := initStore(context.Background())
	require.NoError(t, err)
	defer st.Close()

	assert.NoError(t, st.Migrate(context.Background()))
}

func TestInitStoreUnknownDriver(t *testing.T) {
	setTestConfig(t)
	cfg.Store.Driver = "oracle"

	_, err := initStore(context.Background())
	assert.Error(t, err)
}

func TestInitLoaderMock(t *testing.T) {
	setTestConfig(t)

	ld, redemptions, cleanup, err := initLoader(context.Background())
	require.NoError(t, err)
	defer cleanup()

	assert.IsType(t, &loader.MockLoader{}, ld)
	assert.IsType(t, loader.NoRedemptions{}, redemptions)
}

func TestInitLoaderUnknownMode(t *testing.T) {
	setTestConfig(t)
	cfg.Loader.Mode = "csv"

	_, _, _, err := initLoader(context.Background())
	assert.Error(t, err)
}

func TestInitLoaderPostgresRequiresURL(t *testing.T) {
	setTestConfig(t)
	cfg.Loader.Mode = "postgres"

	_, _, _, err := initLoader(context.Background())
	assert.Error(t, err)
}

func TestInitNotifiersBothTiers(t *testing.T) {
	setTestConfig(t)

	notifiers := initNotifiers()
	require.Len(t, notifiers, 2)
	assert.NotNil(t, notifiers[model.TierHighValue])
	assert.NotNil(t, notifiers[model.TierGeneral])
}
