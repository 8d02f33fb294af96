package models

// Params are the user-chosen knobs for one request. Every value is clamped
// into range rather than rejected.
type Params struct {
	Quality       int    `json:"quality"`        // 1–100, lossy images
	ResizePercent int    `json:"resize_percent"` // 50–100, images
	Level         int    `json:"level"`          // 1–9, generic compression
	Algorithm     string `json:"algorithm"`      // generic codec name
	TargetMB      int    `json:"target_mb"`      // 1–100, video
}

const (
	MinQuality, MaxQuality   = 1, 100
	MinResize, MaxResize     = 50, 100
	MinLevel, MaxLevel       = 1, 9
	MinTargetMB, MaxTargetMB = 1, 100
)

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamped returns a copy of p with every field forced into its range.
func (p Params) Clamped() Params {
	p.Quality = clamp(p.Quality, MinQuality, MaxQuality)
	p.ResizePercent = clamp(p.ResizePercent, MinResize, MaxResize)
	p.Level = clamp(p.Level, MinLevel, MaxLevel)
	p.TargetMB = clamp(p.TargetMB, MinTargetMB, MaxTargetMB)
	return p
}

// AsMap flattens p for history records.
func (p Params) AsMap() map[string]any {
	return map[string]any{
		"quality":        p.Quality,
		"resize_percent": p.ResizePercent,
		"level":          p.Level,
		"algorithm":      p.Algorithm,
		"target_mb":      p.TargetMB,
	}
}
