package hermes

const (
	SubjectScoreComputed = "brainnova.score.computed"
	SubjectScoreFallback = "brainnova.score.fallback"

	StreamName   = "BRAINNOVA_EVENTS"
	StreamMaxAge = "720h" // 30 days
)
