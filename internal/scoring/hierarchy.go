package scoring

import (
	"sort"
	"strings"

	"github.com/brainnova/brainnova-score/internal/store"
)

type indicatorNode struct {
	def          store.IndicatorDefinition
	importance   Importance
	subdimension string
}

type subdimensionNode struct {
	def       store.SubdimensionDefinition
	dimension string
}

// Snapshot is an immutable, name-normalized view of the indicator hierarchy
// taken for a single computation. Names that appear more than once at the
// same level with conflicting parents are ambiguous and never resolve.
type Snapshot struct {
	indicators    map[string]indicatorNode
	subdimensions map[string]subdimensionNode
	dimensions    map[string]store.DimensionDefinition
	ambiguous     map[string]bool
}

func key(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func NewSnapshot(h *store.Hierarchy) *Snapshot {
	s := &Snapshot{
		indicators:    make(map[string]indicatorNode),
		subdimensions: make(map[string]subdimensionNode),
		dimensions:    make(map[string]store.DimensionDefinition),
		ambiguous:     make(map[string]bool),
	}
	if h == nil {
		return s
	}

	for _, d := range h.Dimensions {
		k := key(d.Name)
		if prev, ok := s.dimensions[k]; ok && prev.WeightPct != d.WeightPct {
			s.ambiguous["d:"+k] = true
		}
		s.dimensions[k] = d
	}
	for _, sd := range h.Subdimensions {
		k := key(sd.Name)
		if prev, ok := s.subdimensions[k]; ok && prev.dimension != key(sd.Dimension) {
			s.ambiguous["s:"+k] = true
		}
		s.subdimensions[k] = subdimensionNode{def: sd, dimension: key(sd.Dimension)}
	}
	for _, ind := range h.Indicators {
		k := key(ind.Name)
		if prev, ok := s.indicators[k]; ok && prev.subdimension != key(ind.Subdimension) {
			s.ambiguous["i:"+k] = true
		}
		s.indicators[k] = indicatorNode{
			def:          ind,
			importance:   ParseImportance(ind.Importance),
			subdimension: key(ind.Subdimension),
		}
	}
	return s
}

// resolve follows indicator -> subdimension -> dimension. ok is false when
// any link is missing or ambiguous.
func (s *Snapshot) resolve(indicator string) (ind indicatorNode, sub subdimensionNode, dim store.DimensionDefinition, ok bool) {
	k := key(indicator)
	ind, ok = s.indicators[k]
	if !ok || s.ambiguous["i:"+k] || ind.subdimension == "" {
		return ind, sub, dim, false
	}
	sub, ok = s.subdimensions[ind.subdimension]
	if !ok || s.ambiguous["s:"+ind.subdimension] || sub.dimension == "" {
		return ind, sub, dim, false
	}
	dim, ok = s.dimensions[sub.dimension]
	if !ok || s.ambiguous["d:"+sub.dimension] {
		return ind, sub, dim, false
	}
	return ind, sub, dim, true
}

// TotalWeightPct sums the configured dimension weights.
func (s *Snapshot) TotalWeightPct() float64 {
	var total float64
	for _, d := range s.dimensions {
		total += d.WeightPct
	}
	return total
}

// DimensionNode is one branch of the hierarchy tree.
type DimensionNode struct {
	Name          string             `json:"name"`
	WeightPct     float64            `json:"weight_pct"`
	Subdimensions []SubdimensionNode `json:"subdimensions"`
}

type SubdimensionNode struct {
	Name       string          `json:"name"`
	Weight     float64         `json:"weight"`
	Indicators []IndicatorNode `json:"indicators"`
}

type IndicatorNode struct {
	Name       string  `json:"name"`
	Importance string  `json:"importance"`
	Weight     float64 `json:"weight"`
	Formula    string  `json:"formula,omitempty"`
	Source     string  `json:"source,omitempty"`
}

// Tree returns the resolvable part of the hierarchy as a sorted tree.
// Dimensions without subdimensions are included so their weights stay visible.
func (s *Snapshot) Tree() []DimensionNode {
	subsByDim := make(map[string][]SubdimensionNode)
	indsBySub := make(map[string][]IndicatorNode)

	for k, ind := range s.indicators {
		if _, _, _, ok := s.resolve(k); !ok {
			continue
		}
		indsBySub[ind.subdimension] = append(indsBySub[ind.subdimension], IndicatorNode{
			Name:       ind.def.Name,
			Importance: ind.importance.String(),
			Weight:     ind.importance.Weight(),
			Formula:    ind.def.Formula,
			Source:     ind.def.Source,
		})
	}
	for k, sub := range s.subdimensions {
		if s.ambiguous["s:"+k] {
			continue
		}
		if _, ok := s.dimensions[sub.dimension]; !ok {
			continue
		}
		inds := indsBySub[k]
		if inds == nil {
			inds = []IndicatorNode{}
		}
		sort.Slice(inds, func(i, j int) bool { return inds[i].Name < inds[j].Name })
		subsByDim[sub.dimension] = append(subsByDim[sub.dimension], SubdimensionNode{
			Name:       sub.def.Name,
			Weight:     sub.def.Weight,
			Indicators: inds,
		})
	}

	out := make([]DimensionNode, 0, len(s.dimensions))
	for k, d := range s.dimensions {
		subs := subsByDim[k]
		if subs == nil {
			subs = []SubdimensionNode{}
		}
		sort.Slice(subs, func(i, j int) bool { return subs[i].Name < subs[j].Name })
		out = append(out, DimensionNode{Name: d.Name, WeightPct: d.WeightPct, Subdimensions: subs})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
