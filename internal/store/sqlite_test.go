package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "brainnova.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testSnapshot() *Snapshot {
	return &Snapshot{
		Hierarchy: Hierarchy{
			Dimensions: []DimensionDefinition{
				{Name: "Capital humano", WeightPct: 30},
				{Name: "Infraestructura", WeightPct: 20},
			},
			Subdimensions: []SubdimensionDefinition{
				{Name: "Competencias", Dimension: "Capital humano", Weight: 50},
				{Name: "Conectividad", Dimension: "Infraestructura", Weight: 50},
			},
			Indicators: []IndicatorDefinition{
				{Name: "Competencias digitales básicas", Subdimension: "Competencias", Importance: "Alta"},
				{Name: "Cobertura 5G", Subdimension: "Conectividad", Importance: "media"},
			},
		},
		Observations: []Observation{
			{Indicator: "Competencias digitales básicas", Value: 64.5, Unit: "%", Region: "España", Period: 2024},
			{Indicator: "Cobertura 5G", Value: 81, Region: "España", Period: 2024},
			{Indicator: "Cobertura 5G", Value: 70, Region: "España", Period: 2024, Province: "Valencia"},
			{Indicator: "Cobertura 5G", Value: 75, Region: "España", Period: 2023},
		},
	}
}

func TestSQLiteStore_LoadAndFetch(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	require.NoError(t, s.LoadSnapshot(ctx, testSnapshot()))

	obs, err := s.FetchObservations(ctx, ObservationQuery{Region: "España", Period: 2024})
	require.NoError(t, err)
	require.Len(t, obs, 2, "provincial row must not leak into the national query")
	assert.Equal(t, "Cobertura 5G", obs[0].Indicator)
	assert.Equal(t, "", obs[0].Province)
	assert.Equal(t, "%", obs[1].Unit)

	obs, err = s.FetchObservations(ctx, ObservationQuery{Region: "España", Period: 2024, Province: "Valencia"})
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, 70.0, obs[0].Value)
}

func TestSQLiteStore_ProvinceNullEqualsEmpty(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx, `INSERT INTO resultado_indicadores
		(nombre_indicador, valor_calculado, pais, periodo, provincia) VALUES
		('A', 10, 'España', 2024, NULL),
		('B', 20, 'España', 2024, ''),
		('C', 30, 'España', 2024, 'Madrid')`)
	require.NoError(t, err)

	obs, err := s.FetchObservations(ctx, ObservationQuery{Region: "España", Period: 2024})
	require.NoError(t, err)
	require.Len(t, obs, 2)
	assert.Equal(t, "A", obs[0].Indicator)
	assert.Equal(t, "B", obs[1].Indicator)
}

func TestSQLiteStore_FetchObservationsByIndicator(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	require.NoError(t, s.LoadSnapshot(ctx, testSnapshot()))

	obs, err := s.FetchObservations(ctx, ObservationQuery{
		Region: "España", Period: 2024, Indicators: []string{"COBERTURA 5G"},
	})
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, 81.0, obs[0].Value)
}

func TestSQLiteStore_FetchObservationsEmpty(t *testing.T) {
	s := newTestSQLite(t)
	obs, err := s.FetchObservations(context.Background(), ObservationQuery{Region: "Francia", Period: 2024})
	require.NoError(t, err)
	assert.NotNil(t, obs)
	assert.Empty(t, obs)
}

func TestSQLiteStore_FetchHierarchy(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	require.NoError(t, s.LoadSnapshot(ctx, testSnapshot()))

	all, err := s.FetchHierarchy(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all.Indicators, 2)
	assert.Len(t, all.Subdimensions, 2)
	assert.Len(t, all.Dimensions, 2)

	one, err := s.FetchHierarchy(ctx, []string{"cobertura 5g"})
	require.NoError(t, err)
	require.Len(t, one.Indicators, 1)
	assert.Equal(t, "media", one.Indicators[0].Importance)
	require.Len(t, one.Subdimensions, 1)
	assert.Equal(t, "Conectividad", one.Subdimensions[0].Name)
	require.Len(t, one.Dimensions, 1)
	assert.Equal(t, 20.0, one.Dimensions[0].WeightPct)
}

func TestSQLiteStore_LoadSnapshotReplaces(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	require.NoError(t, s.LoadSnapshot(ctx, testSnapshot()))
	require.NoError(t, s.LoadSnapshot(ctx, &Snapshot{}))

	h, err := s.FetchHierarchy(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, h.Indicators)
	assert.Empty(t, h.Dimensions)
}
