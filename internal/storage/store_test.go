package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockpulse/internal/config"
	"stockpulse/pkg/contracts/domain"
)

func resultData(name string, category domain.Category, rows int) *domain.ResultData {
	sheetRows := make([]domain.Row, rows)
	for i := range sheetRows {
		sheetRows[i] = domain.Row{"Material": "M", "Value": float64(i + 1)}
	}
	return &domain.ResultData{
		FileName: name,
		Sheets: []domain.NormalizedSheet{{
			Name:     "FG value",
			Category: category,
			RowCount: rows,
			Columns:  []string{"Material", "Value"},
			Rows:     sheetRows,
		}},
		DetectedCategories: []domain.Category{category},
	}
}

// storeContract exercises the behavior every Store shares
func storeContract(t *testing.T, store Store) {
	ctx := context.Background()

	_, err := store.GetActive(ctx, domain.CategoryInventory)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = store.Save(ctx, domain.RawFile{Name: "x.xlsx"}, nil, domain.CategoryInventory)
	require.ErrorIs(t, err, ErrInvalidDataset)

	firstRaw := domain.RawFile{Name: "first.xlsx", Content: []byte("first")}
	firstID, err := store.Save(ctx, firstRaw, resultData("first.xlsx", domain.CategoryInventory, 3), domain.CategoryInventory)
	require.NoError(t, err)
	require.NotEmpty(t, firstID)

	time.Sleep(2 * time.Millisecond)

	secondID, err := store.Save(ctx, domain.RawFile{Name: "second.xlsx", Content: []byte("second")},
		resultData("second.xlsx", domain.CategoryInventory, 5), domain.CategoryInventory)
	require.NoError(t, err)
	assert.NotEqual(t, firstID, secondID)

	active, err := store.GetActive(ctx, domain.CategoryInventory)
	require.NoError(t, err)
	assert.Equal(t, secondID, active.ID)
	assert.True(t, active.Active)
	assert.Equal(t, "second.xlsx", active.FileName)
	assert.Equal(t, int64(len("second")), active.FileSize)
	assert.Equal(t, Checksum([]byte("second")), active.Checksum)
	assert.Equal(t, 1, active.SheetCount)
	assert.Equal(t, 5, active.RowCount)
	require.NotNil(t, active.Data)
	assert.Len(t, active.Data.Sheets[0].Rows, 5)

	history, err := store.ListHistory(ctx, domain.CategoryInventory)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, secondID, history[0].ID)
	assert.True(t, history[0].Active)
	assert.Equal(t, firstID, history[1].ID)
	assert.False(t, history[1].Active)

	first, err := store.Get(ctx, firstID)
	require.NoError(t, err)
	assert.Equal(t, Checksum(firstRaw.Content), first.Checksum)
	assert.False(t, first.Active)

	_, err = store.Get(ctx, "no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)

	osrHistory, err := store.ListHistory(ctx, domain.CategoryOSR)
	require.NoError(t, err)
	assert.Empty(t, osrHistory)

	assert.NoError(t, store.Ping(ctx))
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	storeContract(t, store)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("STOCKPULSE_TEST_DSN")
	if dsn == "" {
		t.Skip("STOCKPULSE_TEST_DSN not set")
	}

	cfg := config.Default().Storage
	cfg.Driver = config.StorageDriverPostgres
	cfg.DSN = dsn

	store, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer store.Close()

	pg := store.(*PostgresStore)
	_, err = pg.pool.Exec(context.Background(), `DELETE FROM datasets`)
	require.NoError(t, err)

	storeContract(t, store)
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		driver  string
		wantErr bool
	}{
		{"default", "", false},
		{"memory", config.StorageDriverMemory, false},
		{"unknown", "sqlite", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default().Storage
			cfg.Driver = tt.driver
			store, err := Open(context.Background(), cfg, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, &MemoryStore{}, store)
		})
	}
}

func TestChecksum(t *testing.T) {
	sum := Checksum([]byte("stockpulse"))
	assert.Len(t, sum, 64)
	assert.Equal(t, sum, Checksum([]byte("stockpulse")))
	assert.NotEqual(t, sum, Checksum([]byte("stockpulse!")))
	assert.Equal(t, "0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8", Checksum(nil))
}
