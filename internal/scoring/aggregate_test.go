package scoring

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainnova/brainnova-score/internal/store"
)

var nationalRequest = Request{Region: "España", Period: 2024}

// fixtureHierarchy has three dimensions (30/20/50) so that scoring only A and
// B leaves half of the configured weight unobserved.
func fixtureHierarchy() *store.Hierarchy {
	return &store.Hierarchy{
		Dimensions: []store.DimensionDefinition{
			{Name: "A", WeightPct: 30},
			{Name: "B", WeightPct: 20},
			{Name: "C", WeightPct: 50},
		},
		Subdimensions: []store.SubdimensionDefinition{
			{Name: "A1", Dimension: "A", Weight: 10},
			{Name: "A2", Dimension: "A", Weight: 10},
			{Name: "B1", Dimension: "B", Weight: 10},
			{Name: "C1", Dimension: "C", Weight: 10},
		},
		Indicators: []store.IndicatorDefinition{
			{Name: "a1-high", Subdimension: "A1", Importance: "Alta"},
			{Name: "a1-low", Subdimension: "A1", Importance: "Baja"},
			{Name: "a2", Subdimension: "A2", Importance: "Media"},
			{Name: "a2-extra", Subdimension: "A2", Importance: "media"},
			{Name: "b1", Subdimension: "B1", Importance: "ALTA"},
			{Name: "c1", Subdimension: "C1", Importance: "Alta"},
		},
	}
}

func obs(indicator string, value float64) store.Observation {
	return store.Observation{Indicator: indicator, Value: value, Region: "España", Period: 2024}
}

func dimension(t *testing.T, r *ScoreResult, name string) DimensionScore {
	t.Helper()
	for _, d := range r.Dimensions {
		if d.Dimension == name {
			return d
		}
	}
	t.Fatalf("dimension %q not in result", name)
	return DimensionScore{}
}

func TestAggregate_SubdimensionWeightedMean(t *testing.T) {
	r, err := Aggregate(nationalRequest, []store.Observation{
		obs("a1-high", 80),
		obs("a1-low", 40),
	}, NewSnapshot(fixtureHierarchy()), PolicyZero)
	require.NoError(t, err)

	a := dimension(t, r, "A")
	require.Len(t, a.Subdimensions, 1)
	assert.Equal(t, 70.0, a.Subdimensions[0].Score)
	assert.Equal(t, 2, a.Subdimensions[0].Indicators)
	assert.Equal(t, 70.0, a.Score)

	// 80 (x3) and 60 (x1) give 300/4.
	r, err = Aggregate(nationalRequest, []store.Observation{
		obs("a1-high", 80),
		obs("a1-low", 60),
	}, NewSnapshot(fixtureHierarchy()), PolicyZero)
	require.NoError(t, err)
	assert.Equal(t, 75.0, dimension(t, r, "A").Score)
}

func TestAggregate_DimensionUnweightedMean(t *testing.T) {
	// A1 = 70 from two indicators, A2 = 50 from a single one.
	r, err := Aggregate(nationalRequest, []store.Observation{
		obs("a1-high", 80),
		obs("a1-low", 40),
		obs("a2", 50),
	}, NewSnapshot(fixtureHierarchy()), PolicyZero)
	require.NoError(t, err)

	a := dimension(t, r, "A")
	assert.Equal(t, 60.0, a.Score)
	require.Len(t, a.Subdimensions, 2)
	assert.Equal(t, "A1", a.Subdimensions[0].Subdimension)
	assert.Equal(t, 70.0, a.Subdimensions[0].Score)
	assert.Equal(t, 50.0, a.Subdimensions[1].Score)
}

func TestAggregate_GlobalCountsAbsentDimensionsAsZero(t *testing.T) {
	r, err := Aggregate(nationalRequest, []store.Observation{
		obs("a1-high", 80),
		obs("a1-low", 40),
		obs("a2", 50),
		obs("b1", 40),
	}, NewSnapshot(fixtureHierarchy()), PolicyZero)
	require.NoError(t, err)

	assert.Equal(t, 26.0, r.GlobalScore)
	require.Len(t, r.Dimensions, 2)
	assert.Equal(t, "A", r.Dimensions[0].Dimension)
	assert.Equal(t, "B", r.Dimensions[1].Dimension)
	require.NotNil(t, r.Dimensions[0].Contribution)
	assert.Equal(t, 18.0, *r.Dimensions[0].Contribution)
	assert.Equal(t, 30.0, *r.Dimensions[0].WeightPct)
	assert.Equal(t, 8.0, *r.Dimensions[1].Contribution)
}

func TestAggregate_RenormalizePolicy(t *testing.T) {
	r, err := Aggregate(nationalRequest, []store.Observation{
		obs("a2", 60),
		obs("b1", 40),
	}, NewSnapshot(fixtureHierarchy()), PolicyRenormalize)
	require.NoError(t, err)

	// (60*30 + 40*20) / 50
	assert.Equal(t, 52.0, r.GlobalScore)
}

func TestAggregate_Range(t *testing.T) {
	for _, v := range []float64{0, 0.001, 33.333, 99.999, 100} {
		r, err := Aggregate(nationalRequest, []store.Observation{
			obs("a1-high", v), obs("a2", 100 - v), obs("b1", v), obs("c1", v),
		}, NewSnapshot(fixtureHierarchy()), PolicyZero)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, r.GlobalScore, 0.0)
		assert.LessOrEqual(t, r.GlobalScore, 100.0)
		for _, d := range r.Dimensions {
			assert.GreaterOrEqual(t, d.Score, 0.0)
			assert.LessOrEqual(t, d.Score, 100.0)
		}
	}
}

func TestAggregate_Rounding(t *testing.T) {
	r, err := Aggregate(nationalRequest, []store.Observation{
		obs("a2", 33.331),
		obs("a2-extra", 33.333),
	}, NewSnapshot(fixtureHierarchy()), PolicyZero)
	require.NoError(t, err)
	assert.Equal(t, 33.33, dimension(t, r, "A").Score)
	assert.Equal(t, 10.0, r.GlobalScore)
}

func TestAggregate_Idempotent(t *testing.T) {
	observations := []store.Observation{
		obs("b1", 41.17), obs("a1-high", 80.5), obs("a2", 12.3), obs("c1", 77.7), obs("a1-low", 60.25),
	}
	snap := NewSnapshot(fixtureHierarchy())

	first, err := Aggregate(nationalRequest, observations, snap, PolicyZero)
	require.NoError(t, err)
	second, err := Aggregate(nationalRequest, observations, snap, PolicyZero)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestAggregate_OrphansExcluded(t *testing.T) {
	h := fixtureHierarchy()
	h.Indicators = append(h.Indicators,
		store.IndicatorDefinition{Name: "no-sub", Importance: "Alta"},
		store.IndicatorDefinition{Name: "dangling-sub", Subdimension: "Z9", Importance: "Alta"},
	)
	h.Subdimensions = append(h.Subdimensions, store.SubdimensionDefinition{Name: "Orphan", Dimension: "Missing"})
	h.Indicators = append(h.Indicators, store.IndicatorDefinition{Name: "dangling-dim", Subdimension: "Orphan"})

	r, err := Aggregate(nationalRequest, []store.Observation{
		obs("b1", 50),
		obs("no-sub", 100),
		obs("dangling-sub", 100),
		obs("dangling-dim", 100),
		obs("undefined", 100),
	}, NewSnapshot(h), PolicyZero)
	require.NoError(t, err)

	assert.Equal(t, 10.0, r.GlobalScore)
	require.Len(t, r.Dimensions, 1)
	assert.True(t, r.Stats.PartialHierarchy())
	assert.Equal(t, []string{"dangling-dim", "dangling-sub", "no-sub", "undefined"}, r.Stats.DroppedIndicators)
	assert.Equal(t, 5, r.Stats.Observations)
	assert.Equal(t, 1, r.Stats.Used)
}

func TestAggregate_AmbiguousIndicatorExcluded(t *testing.T) {
	h := fixtureHierarchy()
	h.Indicators = append(h.Indicators, store.IndicatorDefinition{Name: "B1", Subdimension: "A1"})

	_, err := Aggregate(nationalRequest, []store.Observation{obs("b1", 50)}, NewSnapshot(h), PolicyZero)
	assert.True(t, errors.Is(err, ErrNoDataForFilters))
}

func TestAggregate_CaseInsensitiveNames(t *testing.T) {
	r, err := Aggregate(nationalRequest, []store.Observation{obs("  A1-HIGH ", 90)}, NewSnapshot(fixtureHierarchy()), PolicyZero)
	require.NoError(t, err)
	assert.Equal(t, 90.0, dimension(t, r, "A").Score)
}

func TestAggregate_NoData(t *testing.T) {
	_, err := Aggregate(nationalRequest, nil, NewSnapshot(fixtureHierarchy()), PolicyZero)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoDataForFilters))

	_, err = Aggregate(nationalRequest, []store.Observation{obs("undefined", 10)}, NewSnapshot(fixtureHierarchy()), PolicyZero)
	assert.True(t, errors.Is(err, ErrNoDataForFilters))
}

func TestAggregate_ZeroScoreIsNotNoData(t *testing.T) {
	r, err := Aggregate(nationalRequest, []store.Observation{obs("b1", 0)}, NewSnapshot(fixtureHierarchy()), PolicyZero)
	require.NoError(t, err)
	assert.Equal(t, 0.0, r.GlobalScore)
	assert.Equal(t, SourceLocal, r.Source)
}
