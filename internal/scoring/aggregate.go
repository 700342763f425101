package scoring

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/brainnova/brainnova-score/internal/store"
)

// Policy decides how dimensions without any scored subdimension affect the
// global index.
type Policy string

const (
	// PolicyZero keeps the configured weight of absent dimensions in the
	// denominator, so they pull the global index down as a score of 0.
	PolicyZero Policy = "zero"
	// PolicyRenormalize divides by the weights of the scored dimensions only.
	PolicyRenormalize Policy = "renormalize"
)

type subAcc struct {
	name       string
	dimension  string
	weighted   float64
	weights    float64
	indicators map[string]bool
}

type dimAcc struct {
	def  store.DimensionDefinition
	subs []SubdimensionScore
}

// Aggregate combines observations through the hierarchy snapshot into a
// ScoreResult. It is a pure function of its inputs: equal inputs give equal
// results with the breakdown sorted by dimension name.
func Aggregate(req Request, observations []store.Observation, snap *Snapshot, policy Policy) (*ScoreResult, error) {
	if snap == nil {
		snap = NewSnapshot(nil)
	}

	subs := make(map[string]*subAcc)
	dropped := make(map[string]bool)
	used := 0

	for _, o := range observations {
		ind, sub, dim, ok := snap.resolve(o.Indicator)
		if !ok {
			dropped[o.Indicator] = true
			continue
		}
		subKey := key(sub.def.Name)
		acc, exists := subs[subKey]
		if !exists {
			acc = &subAcc{name: sub.def.Name, dimension: key(dim.Name), indicators: make(map[string]bool)}
			subs[subKey] = acc
		}
		w := ind.importance.Weight()
		acc.weighted += o.Value * w
		acc.weights += w
		acc.indicators[key(ind.def.Name)] = true
		used++
	}

	if used == 0 {
		return nil, eris.Wrapf(ErrNoDataForFilters, "region %q period %d", req.Region, req.Period)
	}

	// Level 1 -> 2: subdimension weighted means grouped by dimension.
	dims := make(map[string]*dimAcc)
	for _, acc := range subs {
		var score float64
		if acc.weights != 0 {
			score = acc.weighted / acc.weights
		}
		d, ok := dims[acc.dimension]
		if !ok {
			d = &dimAcc{def: snap.dimensions[acc.dimension]}
			dims[acc.dimension] = d
		}
		d.subs = append(d.subs, SubdimensionScore{
			Subdimension: acc.name,
			Score:        score,
			Indicators:   len(acc.indicators),
		})
	}

	// Level 2 -> 3: unweighted dimension means, then the weighted global
	// sum. Iterate in name order so float accumulation is reproducible.
	dimKeys := make([]string, 0, len(dims))
	for k := range dims {
		dimKeys = append(dimKeys, k)
	}
	sort.Strings(dimKeys)

	var global, scoredWeight float64
	breakdown := make([]DimensionScore, 0, len(dims))
	for _, k := range dimKeys {
		d := dims[k]
		sort.Slice(d.subs, func(i, j int) bool { return d.subs[i].Subdimension < d.subs[j].Subdimension })
		var sum float64
		for _, s := range d.subs {
			sum += s.Score
		}
		score := sum / float64(len(d.subs))
		contribution := score * d.def.WeightPct / 100
		global += contribution
		scoredWeight += d.def.WeightPct

		for i := range d.subs {
			d.subs[i].Score = Round2(d.subs[i].Score)
		}
		weight := d.def.WeightPct
		contribution = Round2(contribution)
		breakdown = append(breakdown, DimensionScore{
			Dimension:     d.def.Name,
			Score:         Round2(score),
			WeightPct:     &weight,
			Contribution:  &contribution,
			Subdimensions: d.subs,
		})
	}
	sort.Slice(breakdown, func(i, j int) bool { return breakdown[i].Dimension < breakdown[j].Dimension })

	if policy == PolicyRenormalize {
		if scoredWeight > 0 {
			global = global * 100 / scoredWeight
		} else {
			global = 0
		}
	}

	stats := &Stats{Observations: len(observations), Used: used}
	for name := range dropped {
		stats.DroppedIndicators = append(stats.DroppedIndicators, name)
	}
	sort.Strings(stats.DroppedIndicators)

	return &ScoreResult{
		GlobalScore: Round2(global),
		Dimensions:  breakdown,
		Request:     req,
		Source:      SourceLocal,
		Stats:       stats,
	}, nil
}
