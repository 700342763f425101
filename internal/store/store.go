package store

import (
	"context"
)

// IndicatorDefinition is one row of definicion_indicadores.
type IndicatorDefinition struct {
	Name         string `json:"nombre" yaml:"nombre"`
	Subdimension string `json:"nombre_subdimension" yaml:"nombre_subdimension"`
	Importance   string `json:"importancia,omitempty" yaml:"importancia"`
	Formula      string `json:"formula,omitempty" yaml:"formula"`
	Source       string `json:"fuente,omitempty" yaml:"fuente"`
	Origin       string `json:"origen_indicador,omitempty" yaml:"origen_indicador"`
}

// SubdimensionDefinition is one row of subdimensiones. Weight is nominal and
// not used when combining subdimensions.
type SubdimensionDefinition struct {
	Name      string  `json:"nombre" yaml:"nombre"`
	Dimension string  `json:"nombre_dimension" yaml:"nombre_dimension"`
	Weight    float64 `json:"peso" yaml:"peso"`
}

// DimensionDefinition is one row of dimensiones. WeightPct is on a 0-100 scale.
type DimensionDefinition struct {
	Name      string  `json:"nombre" yaml:"nombre"`
	WeightPct float64 `json:"peso" yaml:"peso"`
}

// Observation is one row of resultado_indicadores. Empty Province, Sector or
// Size means the national, no-breakdown value (NULL or '' in the table).
type Observation struct {
	Indicator string  `json:"nombre_indicador" yaml:"nombre_indicador"`
	Value     float64 `json:"valor_calculado" yaml:"valor_calculado"`
	Unit      string  `json:"unidad,omitempty" yaml:"unidad"`
	Region    string  `json:"pais" yaml:"pais"`
	Period    int     `json:"periodo" yaml:"periodo"`
	Province  string  `json:"provincia,omitempty" yaml:"provincia"`
	Sector    string  `json:"sector,omitempty" yaml:"sector"`
	Size      string  `json:"tamano_empresa,omitempty" yaml:"tamano_empresa"`
}

// ObservationQuery selects observations. Region and Period always match
// exactly. An empty Province, Sector or Size only matches rows where that
// column is NULL or empty. An empty Indicators list means every indicator.
type ObservationQuery struct {
	Indicators []string
	Region     string
	Period     int
	Province   string
	Sector     string
	Size       string
}

// Hierarchy holds the definitions joined for a set of indicators: the
// indicators themselves, the subdimensions they reference and the dimensions
// those subdimensions reference.
type Hierarchy struct {
	Indicators    []IndicatorDefinition    `json:"indicators" yaml:"indicators"`
	Subdimensions []SubdimensionDefinition `json:"subdimensions" yaml:"subdimensions"`
	Dimensions    []DimensionDefinition    `json:"dimensions" yaml:"dimensions"`
}

// Store is read-only access to the indicator tables. Empty results are
// returned as empty slices, never as errors.
type Store interface {
	FetchObservations(ctx context.Context, q ObservationQuery) ([]Observation, error)
	// FetchHierarchy returns the definitions for the named indicators, or the
	// whole definition set when indicatorNames is empty.
	FetchHierarchy(ctx context.Context, indicatorNames []string) (*Hierarchy, error)

	Ping(ctx context.Context) error
	Close() error
}
