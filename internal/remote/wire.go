package remote

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/brainnova/brainnova-score/internal/scoring"
)

// WireDimension is one element of desglose_por_dimension.
type WireDimension struct {
	Dimension    string   `json:"dimension"`
	Score        *float64 `json:"score_dimension"`
	WeightPct    *float64 `json:"peso_configurado,omitempty"`
	Contribution *float64 `json:"contribucion_al_global,omitempty"`
}

// WireResponse is the JSON document exchanged with a scoring service. The
// global score is written under both the current and the legacy field name,
// and the breakdown both as a list and as a name-to-score map.
type WireResponse struct {
	GlobalScore   float64            `json:"brainnova_global_score"`
	LegacyScore   float64            `json:"indice_ponderado"`
	Region        string             `json:"pais"`
	Period        int                `json:"periodo"`
	Province      string             `json:"provincia,omitempty"`
	Sector        string             `json:"sector,omitempty"`
	Size          string             `json:"tamano_empresa,omitempty"`
	Breakdown     []WireDimension    `json:"desglose_por_dimension"`
	BreakdownMap  map[string]float64 `json:"desglose"`
	Source        scoring.Source     `json:"fuente"`
	DroppedInputs []string           `json:"indicadores_descartados,omitempty"`
}

// EncodeResponse converts a result into the wire document.
func EncodeResponse(r *scoring.ScoreResult) *WireResponse {
	w := &WireResponse{
		GlobalScore:  r.GlobalScore,
		LegacyScore:  r.GlobalScore,
		Region:       r.Request.Region,
		Period:       r.Request.Period,
		Province:     r.Request.Province,
		Sector:       r.Request.Sector,
		Size:         r.Request.Size,
		Breakdown:    make([]WireDimension, 0, len(r.Dimensions)),
		BreakdownMap: make(map[string]float64, len(r.Dimensions)),
		Source:       r.Source,
	}
	for _, d := range r.Dimensions {
		score := d.Score
		w.Breakdown = append(w.Breakdown, WireDimension{
			Dimension:    d.Dimension,
			Score:        &score,
			WeightPct:    d.WeightPct,
			Contribution: d.Contribution,
		})
		w.BreakdownMap[d.Dimension] = d.Score
	}
	if r.Stats != nil {
		w.DroppedInputs = r.Stats.DroppedIndicators
	}
	return w
}

// incomingResponse accepts every shape a scoring service has been seen to
// send. Breakdown fields stay raw until decodeBreakdown inspects them.
type incomingResponse struct {
	GlobalScore *float64        `json:"brainnova_global_score"`
	LegacyScore *float64        `json:"indice_ponderado"`
	Breakdown   json.RawMessage `json:"desglose_por_dimension"`
	LegacyMap   json.RawMessage `json:"desglose"`
}

// DecodeResponse parses a scoring service body into a ScoreResult for req.
// A body that is not JSON fails with ErrRemoteUnavailable; a JSON body
// without a global score, or with a malformed breakdown, fails with
// ErrRemoteInvalidResponse. An empty breakdown is accepted.
func DecodeResponse(body []byte, req scoring.Request) (*scoring.ScoreResult, error) {
	var in incomingResponse
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, unavailable(eris.Wrap(err, "decode body"), 0)
	}

	global := in.GlobalScore
	if global == nil {
		global = in.LegacyScore
	}
	if global == nil {
		return nil, invalid(eris.New("missing brainnova_global_score"))
	}

	raw := in.Breakdown
	if isNull(raw) {
		raw = in.LegacyMap
	}
	dims, err := decodeBreakdown(raw)
	if err != nil {
		return nil, invalid(err)
	}

	return &scoring.ScoreResult{
		GlobalScore: scoring.Round2(*global),
		Dimensions:  dims,
		Request:     req,
		Source:      scoring.SourceRemote,
	}, nil
}

// decodeBreakdown translates either breakdown encoding, a list of
// WireDimension or a {dimension: score} map, into the canonical form sorted
// by dimension name.
func decodeBreakdown(raw json.RawMessage) ([]scoring.DimensionScore, error) {
	out := []scoring.DimensionScore{}
	if isNull(raw) {
		return out, nil
	}

	switch bytes.TrimSpace(raw)[0] {
	case '[':
		var list []WireDimension
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, eris.Wrap(err, "decode breakdown list")
		}
		for _, d := range list {
			if d.Dimension == "" || d.Score == nil {
				continue
			}
			out = append(out, scoring.DimensionScore{
				Dimension:    d.Dimension,
				Score:        scoring.Round2(*d.Score),
				WeightPct:    d.WeightPct,
				Contribution: d.Contribution,
			})
		}
	case '{':
		var m map[string]*float64
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, eris.Wrap(err, "decode breakdown map")
		}
		for name, score := range m {
			if name == "" || score == nil {
				continue
			}
			out = append(out, scoring.DimensionScore{Dimension: name, Score: scoring.Round2(*score)})
		}
	default:
		return nil, eris.Errorf("unsupported breakdown encoding %q", string(raw))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Dimension < out[j].Dimension })
	return out, nil
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}
