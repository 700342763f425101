package store

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore reads the indicator tables from a local SQLite snapshot.
type SQLiteStore struct {
	reader
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	s := &SQLiteStore{db: db}
	s.reader = reader{ph: question, query: s.query}
	return s, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS dimensiones (
	nombre TEXT PRIMARY KEY,
	peso   REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS subdimensiones (
	nombre           TEXT PRIMARY KEY,
	nombre_dimension TEXT,
	peso             REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS definicion_indicadores (
	nombre              TEXT PRIMARY KEY,
	nombre_subdimension TEXT,
	importancia         TEXT,
	formula             TEXT,
	fuente              TEXT,
	origen_indicador    TEXT
);

CREATE TABLE IF NOT EXISTS resultado_indicadores (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	nombre_indicador TEXT NOT NULL,
	valor_calculado  REAL NOT NULL,
	unidad           TEXT,
	pais             TEXT NOT NULL,
	periodo          INTEGER NOT NULL,
	provincia        TEXT,
	sector           TEXT,
	tamano_empresa   TEXT
);

CREATE INDEX IF NOT EXISTS idx_resultado_pais_periodo ON resultado_indicadores(pais, periodo);
CREATE INDEX IF NOT EXISTS idx_resultado_indicador ON resultado_indicadores(nombre_indicador);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Snapshot is the full content of the four indicator tables.
type Snapshot struct {
	Hierarchy    `yaml:",inline"`
	Observations []Observation `json:"observations" yaml:"observations"`
}

// LoadSnapshot replaces the snapshot tables with s in one transaction.
// Empty optional observation columns are stored as NULL.
func (s *SQLiteStore) LoadSnapshot(ctx context.Context, snap *Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin snapshot")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"resultado_indicadores", "definicion_indicadores", "subdimensiones", "dimensiones"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return eris.Wrapf(err, "sqlite: clear %s", table)
		}
	}

	for _, d := range snap.Dimensions {
		if _, err := tx.ExecContext(ctx, `INSERT INTO dimensiones (nombre, peso) VALUES (?, ?)`,
			d.Name, d.WeightPct); err != nil {
			return eris.Wrapf(err, "sqlite: insert dimension %s", d.Name)
		}
	}
	for _, sd := range snap.Subdimensions {
		if _, err := tx.ExecContext(ctx, `INSERT INTO subdimensiones (nombre, nombre_dimension, peso) VALUES (?, ?, ?)`,
			sd.Name, nullable(sd.Dimension), sd.Weight); err != nil {
			return eris.Wrapf(err, "sqlite: insert subdimension %s", sd.Name)
		}
	}
	for _, ind := range snap.Indicators {
		if _, err := tx.ExecContext(ctx, `INSERT INTO definicion_indicadores
			(nombre, nombre_subdimension, importancia, formula, fuente, origen_indicador)
			VALUES (?, ?, ?, ?, ?, ?)`,
			ind.Name, nullable(ind.Subdimension), nullable(ind.Importance),
			nullable(ind.Formula), nullable(ind.Source), nullable(ind.Origin)); err != nil {
			return eris.Wrapf(err, "sqlite: insert indicator %s", ind.Name)
		}
	}
	for _, o := range snap.Observations {
		if _, err := tx.ExecContext(ctx, `INSERT INTO resultado_indicadores
			(nombre_indicador, valor_calculado, unidad, pais, periodo, provincia, sector, tamano_empresa)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			o.Indicator, o.Value, nullable(o.Unit), o.Region, o.Period,
			nullable(o.Province), nullable(o.Sector), nullable(o.Size)); err != nil {
			return eris.Wrapf(err, "sqlite: insert observation %s", o.Indicator)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit snapshot")
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) (rows, error) {
	r, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return sqlRows{r}, nil
}

// sqlRows adapts *sql.Rows to the rows interface.
type sqlRows struct {
	r *sql.Rows
}

func (s sqlRows) Next() bool             { return s.r.Next() }
func (s sqlRows) Scan(dest ...any) error { return s.r.Scan(dest...) }
func (s sqlRows) Err() error             { return s.r.Err() }
func (s sqlRows) Close()                 { _ = s.r.Close() }

func (s *SQLiteStore) FetchObservations(ctx context.Context, q ObservationQuery) ([]Observation, error) {
	return s.fetchObservations(ctx, q)
}

func (s *SQLiteStore) FetchHierarchy(ctx context.Context, indicatorNames []string) (*Hierarchy, error) {
	return s.fetchHierarchy(ctx, indicatorNames)
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
