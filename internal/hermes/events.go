package hermes

import "time"

// ScoreFallbackEvent is published when a resolution leaves the remote
// scorer and recomputes locally.
type ScoreFallbackEvent struct {
	ResolutionID string    `json:"resolution_id"`
	Reason       string    `json:"reason"`
	Error        string    `json:"error,omitempty"`
	Region       string    `json:"pais"`
	Period       int       `json:"periodo"`
	Province     string    `json:"provincia,omitempty"`
	Sector       string    `json:"sector,omitempty"`
	Size         string    `json:"tamano_empresa,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// ScoreComputedEvent is published for every resolution that produced a score.
type ScoreComputedEvent struct {
	ResolutionID string    `json:"resolution_id"`
	Source       string    `json:"source"`
	GlobalScore  float64   `json:"global_score"`
	Region       string    `json:"pais"`
	Period       int       `json:"periodo"`
	Dimensions   int       `json:"dimensions"`
	DurationMs   int64     `json:"duration_ms"`
	Timestamp    time.Time `json:"timestamp"`
}
