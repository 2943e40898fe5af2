// Package dbtest opens throwaway in-memory databases for tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"textilserver/internal/config"
	"textilserver/internal/db"
	"textilserver/internal/logger"

	"github.com/stretchr/testify/require"
)

// New returns a migrated and seeded gateway backed by a per-test in-memory
// sqlite database.
func New(t *testing.T) *db.Gateway {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	g, err := db.Open(config.DatabaseConfig{Driver: "sqlite", DSN: dsn}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g
}
