package catalog

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuratuapp/liquidationblitz/pkg/errors"
	"github.com/kuratuapp/liquidationblitz/pkg/logger"
)

// memStore keeps the catalog bytes in memory and counts saves.
type memStore struct {
	data    []byte
	exists  bool
	loadErr error
	saveErr error
	saves   int
}

func (m *memStore) Load(context.Context) ([]byte, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if !m.exists {
		return nil, ErrNotExist
	}
	return m.data, nil
}

func (m *memStore) Save(_ context.Context, data []byte) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data = append([]byte(nil), data...)
	m.exists = true
	m.saves++
	return nil
}

func newTestEngine(store Store) *Engine {
	log := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	return NewEngine(store, log)
}

func TestEngineUpsert(t *testing.T) {
	ctx := context.Background()

	t.Run("first publish creates the catalog", func(t *testing.T) {
		store := &memStore{}
		e := newTestEngine(store)

		require.NoError(t, e.Upsert(ctx, Row{ID: "5001", Title: "batch"}))

		table, err := e.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, table.Len())
	})

	t.Run("republish replaces, never duplicates", func(t *testing.T) {
		store := &memStore{}
		e := newTestEngine(store)

		require.NoError(t, e.Upsert(ctx, Row{ID: "5001", Title: "v1"}))
		require.NoError(t, e.Upsert(ctx, Row{ID: "5002", Title: "other"}))
		require.NoError(t, e.Upsert(ctx, Row{ID: "5001", Title: "v2"}))

		table, err := e.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, 2, table.Len())
		row, ok := table.Find("5001")
		require.True(t, ok)
		assert.Equal(t, "v2", row.Title)
	})

	t.Run("rejects rows without an id", func(t *testing.T) {
		e := newTestEngine(&memStore{})
		err := e.Upsert(ctx, Row{Title: "anonymous"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.CodeValidation))
	})

	t.Run("corrupt catalog recovers to the new row", func(t *testing.T) {
		store := &memStore{data: []byte("garbage header\nrow"), exists: true}
		e := newTestEngine(store)

		require.NoError(t, e.Upsert(ctx, Row{ID: "5003", Title: "fresh"}))

		table, err := e.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, table.Len())
		assert.Equal(t, "5003", table.Rows[0].ID)
	})
}

func TestEngineDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes an existing listing", func(t *testing.T) {
		store := &memStore{}
		e := newTestEngine(store)
		require.NoError(t, e.Upsert(ctx, Row{ID: "5001"}))

		removed, err := e.Delete(ctx, "5001")
		require.NoError(t, err)
		assert.True(t, removed)

		table, err := e.Load(ctx)
		require.NoError(t, err)
		assert.Zero(t, table.Len())
	})

	t.Run("absent id is a no-op and does not rewrite", func(t *testing.T) {
		store := &memStore{}
		e := newTestEngine(store)
		require.NoError(t, e.Upsert(ctx, Row{ID: "5001"}))
		savesBefore := store.saves

		removed, err := e.Delete(ctx, "9999")
		require.NoError(t, err)
		assert.False(t, removed)
		assert.Equal(t, savesBefore, store.saves)
	})

	t.Run("delete on an empty catalog", func(t *testing.T) {
		e := newTestEngine(&memStore{})
		removed, err := e.Delete(ctx, "5001")
		require.NoError(t, err)
		assert.False(t, removed)
	})
}

func TestEngineDeleteMany(t *testing.T) {
	ctx := context.Background()

	t.Run("removes listed ids in one rewrite", func(t *testing.T) {
		store := &memStore{}
		e := newTestEngine(store)
		require.NoError(t, e.Upsert(ctx, Row{ID: "5001"}))
		require.NoError(t, e.Upsert(ctx, Row{ID: "5002"}))
		require.NoError(t, e.Upsert(ctx, Row{ID: "5003"}))
		savesBefore := store.saves

		removed, err := e.DeleteMany(ctx, []string{"5001", "9999", "5003"})
		require.NoError(t, err)
		assert.Equal(t, 2, removed)
		assert.Equal(t, savesBefore+1, store.saves)

		table, err := e.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, table.Len())
		assert.Equal(t, "5002", table.Rows[0].ID)
	})

	t.Run("no listed ids means no rewrite", func(t *testing.T) {
		store := &memStore{}
		e := newTestEngine(store)
		require.NoError(t, e.Upsert(ctx, Row{ID: "5001"}))
		savesBefore := store.saves

		removed, err := e.DeleteMany(ctx, []string{"9998", "9999"})
		require.NoError(t, err)
		assert.Zero(t, removed)
		assert.Equal(t, savesBefore, store.saves)
	})
}

func TestEngineStats(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	e := newTestEngine(store)

	require.NoError(t, e.Upsert(ctx, Row{
		ID: "5001", Price: "6300.00 USD",
		GoogleProductCategory: "Apparel & Accessories > Clothing", Brand: "Acme Apparel",
	}))
	require.NoError(t, e.Upsert(ctx, Row{
		ID: "5002", Price: "1200.50 USD",
		GoogleProductCategory: "Apparel & Accessories > Clothing", Brand: "Mixed Brands",
	}))
	require.NoError(t, e.Upsert(ctx, Row{ID: "5003", Price: "bogus"}))

	stats, err := e.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Listings)
	assert.Equal(t, "7500.5", stats.TotalValue.String())
	assert.Equal(t, 2, stats.Categories["Apparel & Accessories > Clothing"])
	assert.Equal(t, 1, stats.Brands["Acme Apparel"])
}

func TestEngineStoreFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("load failure surfaces as dependency error", func(t *testing.T) {
		e := newTestEngine(&memStore{loadErr: errors.New(errors.CodeDependency, "bucket down")})
		_, err := e.Load(ctx)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.CodeDependency))
	})

	t.Run("save failure surfaces", func(t *testing.T) {
		e := newTestEngine(&memStore{saveErr: errors.New(errors.CodeDependency, "bucket down")})
		err := e.Upsert(ctx, Row{ID: "5001"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.CodeDependency))
	})
}
