package scoring

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/brainnova/brainnova-score/internal/store"
)

var (
	// ErrNoDataForFilters means no usable observation matched the request.
	// It is distinct from a computed score of 0.
	ErrNoDataForFilters = eris.New("no data for the requested filters")
	ErrInvalidRequest   = eris.New("invalid score request")
)

// Source records which path produced a ScoreResult.
type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
)

// Request is the scope of one score computation. Empty optional filters
// select the national, no-breakdown figures.
type Request struct {
	Region   string `json:"pais"`
	Period   int    `json:"periodo"`
	Province string `json:"provincia,omitempty"`
	Sector   string `json:"sector,omitempty"`
	Size     string `json:"tamano_empresa,omitempty"`
}

// Normalized trims surrounding space from every string field.
func (r Request) Normalized() Request {
	return Request{
		Region:   strings.TrimSpace(r.Region),
		Period:   r.Period,
		Province: strings.TrimSpace(r.Province),
		Sector:   strings.TrimSpace(r.Sector),
		Size:     strings.TrimSpace(r.Size),
	}
}

func (r Request) Validate() error {
	if strings.TrimSpace(r.Region) == "" {
		return eris.Wrap(ErrInvalidRequest, "pais is required")
	}
	if r.Period <= 0 {
		return eris.Wrapf(ErrInvalidRequest, "periodo must be positive, got %d", r.Period)
	}
	return nil
}

// ObservationQuery converts the request into a store query over all indicators.
func (r Request) ObservationQuery() store.ObservationQuery {
	return store.ObservationQuery{
		Region:   r.Region,
		Period:   r.Period,
		Province: r.Province,
		Sector:   r.Sector,
		Size:     r.Size,
	}
}

// ScoreResult is the normalized outcome of a resolution, whichever path
// produced it.
type ScoreResult struct {
	GlobalScore float64          `json:"global_score"`
	Dimensions  []DimensionScore `json:"dimensions"`
	Request     Request          `json:"request"`
	Source      Source           `json:"source"`
	Stats       *Stats           `json:"stats,omitempty"`
}

// DimensionScore is one entry of the per-dimension breakdown. WeightPct and
// Contribution are nil when the producer did not report them.
type DimensionScore struct {
	Dimension     string              `json:"dimension"`
	Score         float64             `json:"score"`
	WeightPct     *float64            `json:"weight_pct,omitempty"`
	Contribution  *float64            `json:"contribution,omitempty"`
	Subdimensions []SubdimensionScore `json:"subdimensions,omitempty"`
}

type SubdimensionScore struct {
	Subdimension string  `json:"subdimension"`
	Score        float64 `json:"score"`
	Indicators   int     `json:"indicators"`
}

// Stats describes how much of the fetched data took part in a local
// computation. A non-empty DroppedIndicators list marks a partial hierarchy.
type Stats struct {
	Observations      int      `json:"observations"`
	Used              int      `json:"used"`
	DroppedIndicators []string `json:"dropped_indicators,omitempty"`
}

// PartialHierarchy reports whether some observations were excluded because
// their indicator did not resolve to a dimension.
func (s *Stats) PartialHierarchy() bool {
	return s != nil && len(s.DroppedIndicators) > 0
}

// Round2 rounds to two decimals, halves away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
