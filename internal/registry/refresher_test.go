package registry

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semaflow/semaflow/internal/planner"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHolder_GetReturnsStoredRegistry(t *testing.T) {
	reg := planner.NewRegistry(nil, nil)
	h := NewHolder(reg)
	assert.Same(t, reg, h.Get())
}

func TestRefresher_ReloadNowPicksUpNewTable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tables"), "orders.yaml", ordersTableYAML)

	initial, err := LoadDirectory(dir)
	require.NoError(t, err)
	holder := NewHolder(initial)
	_, ok := holder.Get().Table("customers")
	require.False(t, ok)

	writeFile(t, filepath.Join(dir, "tables"), "customers.yaml", customersTableYAML)

	r := NewRefresher(dir, planner.ValidationWarn, holder, discardLogger())
	require.NoError(t, r.ReloadNow(context.Background()))

	_, ok = holder.Get().Table("customers")
	assert.True(t, ok)
}

func TestRefresher_ReloadSkipsWhenNothingChanged(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tables"), "orders.yaml", ordersTableYAML)

	initial, err := LoadDirectory(dir)
	require.NoError(t, err)
	holder := NewHolder(initial)

	r := NewRefresher(dir, planner.ValidationWarn, holder, discardLogger())
	require.NoError(t, r.ReloadNow(context.Background()))
	first := holder.Get()

	require.NoError(t, r.reload(context.Background()))
	assert.Same(t, first, holder.Get())
}

func TestRefresher_ReloadPropagatesLoadErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tables"), "orders.yaml", ordersTableYAML)

	initial, err := LoadDirectory(dir)
	require.NoError(t, err)
	holder := NewHolder(initial)

	// Break the table file after the initial load.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tables", "orders.yaml"), []byte("not: valid: yaml: ["), 0o644))
	// Ensure the mtime gate sees a change even on filesystems with coarse
	// mtime resolution.
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "tables", "orders.yaml"), future, future))

	r := NewRefresher(dir, planner.ValidationWarn, holder, discardLogger())
	err = r.ReloadNow(context.Background())
	require.Error(t, err)
	assert.Same(t, initial, holder.Get())
}
