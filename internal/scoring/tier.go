package scoring

import "strings"

// Importance is the tier an indicator carries inside its subdimension.
type Importance int

const (
	ImportanceUnknown Importance = iota
	ImportanceLow
	ImportanceMedium
	ImportanceHigh
)

// ParseImportance maps the stored tier label (Alta, Media, Baja) to an
// Importance, ignoring case and surrounding space. Any other label is
// ImportanceUnknown.
func ParseImportance(s string) Importance {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "alta":
		return ImportanceHigh
	case "media":
		return ImportanceMedium
	case "baja":
		return ImportanceLow
	default:
		return ImportanceUnknown
	}
}

// Weight is the multiplier used in the subdimension weighted mean.
// Unknown tiers weigh the same as Low.
func (i Importance) Weight() float64 {
	switch i {
	case ImportanceHigh:
		return 3
	case ImportanceMedium:
		return 2
	default:
		return 1
	}
}

func (i Importance) String() string {
	switch i {
	case ImportanceHigh:
		return "Alta"
	case ImportanceMedium:
		return "Media"
	case ImportanceLow:
		return "Baja"
	default:
		return "unknown"
	}
}
