//go:build integration

package store

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

const integrationSchema = `
CREATE TABLE IF NOT EXISTS dimensiones (nombre TEXT PRIMARY KEY, peso NUMERIC NOT NULL);
CREATE TABLE IF NOT EXISTS subdimensiones (nombre TEXT PRIMARY KEY, nombre_dimension TEXT, peso NUMERIC);
CREATE TABLE IF NOT EXISTS definicion_indicadores (
	nombre TEXT PRIMARY KEY, nombre_subdimension TEXT, importancia TEXT,
	formula TEXT, fuente TEXT, origen_indicador TEXT);
CREATE TABLE IF NOT EXISTS resultado_indicadores (
	id SERIAL PRIMARY KEY, nombre_indicador TEXT NOT NULL, valor_calculado NUMERIC(20,6) NOT NULL,
	unidad TEXT, pais TEXT NOT NULL, periodo INTEGER NOT NULL,
	provincia TEXT, sector TEXT, tamano_empresa TEXT);
`

func setupTestDB(t *testing.T) *PostgresStore {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	p, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	if _, err := p.Exec(ctx, integrationSchema); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		_, _ = p.Exec(ctx, "TRUNCATE resultado_indicadores, definicion_indicadores, subdimensiones, dimensiones")
		p.Close()
	})

	if _, err := p.Exec(ctx, `
		INSERT INTO dimensiones (nombre, peso) VALUES ('Capital humano', 30);
		INSERT INTO subdimensiones (nombre, nombre_dimension, peso) VALUES ('Competencias', 'Capital humano', 50);
		INSERT INTO definicion_indicadores (nombre, nombre_subdimension, importancia, formula)
			VALUES ('Competencias digitales', 'Competencias', 'Alta', 'a/b');
		INSERT INTO resultado_indicadores (nombre_indicador, valor_calculado, pais, periodo, provincia) VALUES
			('Competencias digitales', 64.5, 'España', 2024, NULL),
			('Competencias digitales', 61.0, 'España', 2024, ''),
			('Competencias digitales', 70.0, 'España', 2024, 'Madrid');
	`); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}

	return newPostgresStore(p)
}

func TestFetchObservationsNationalRows(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	obs, err := s.FetchObservations(ctx, ObservationQuery{Region: "España", Period: 2024})
	if err != nil {
		t.Fatalf("FetchObservations failed: %v", err)
	}
	if len(obs) != 2 {
		t.Fatalf("expected NULL and empty province rows, got %d", len(obs))
	}

	obs, err = s.FetchObservations(ctx, ObservationQuery{Region: "España", Period: 2024, Province: "Madrid"})
	if err != nil {
		t.Fatalf("FetchObservations failed: %v", err)
	}
	if len(obs) != 1 || obs[0].Value != 70.0 {
		t.Fatalf("expected Madrid row with 70, got %+v", obs)
	}
}

func TestFetchHierarchyJoins(t *testing.T) {
	s := setupTestDB(t)

	h, err := s.FetchHierarchy(context.Background(), []string{"competencias digitales"})
	if err != nil {
		t.Fatalf("FetchHierarchy failed: %v", err)
	}
	if len(h.Indicators) != 1 || len(h.Subdimensions) != 1 || len(h.Dimensions) != 1 {
		t.Fatalf("expected one row per level, got %+v", h)
	}
	if h.Dimensions[0].WeightPct != 30 {
		t.Errorf("expected weight 30, got %f", h.Dimensions[0].WeightPct)
	}
}
