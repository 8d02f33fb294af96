package video

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDuration = errors.New("invalid video duration")
	ErrInvalidTarget   = errors.New("invalid target size")
)

const (
	// binaryGigaFactor converts the MiB-based target into the rate the encoder
	// actually hits (2^30 / 10^9).
	binaryGigaFactor = 1.073741824

	// Headroom leaves room for container overhead and audio.
	Headroom = 0.9
)

// TargetBitrateKbps is the bitrate in kbit/s that fills targetMB over duration seconds.
func TargetBitrateKbps(targetMB, duration float64) (float64, error) {
	if duration <= 0 {
		return 0, fmt.Errorf("%w: %v seconds", ErrInvalidDuration, duration)
	}
	if targetMB <= 0 {
		return 0, fmt.Errorf("%w: %v MB", ErrInvalidTarget, targetMB)
	}
	return (targetMB * 1024 * 8) / (binaryGigaFactor * duration), nil
}

// EncodeBitrateKbps applies Headroom to TargetBitrateKbps and truncates to whole kbit/s.
func EncodeBitrateKbps(targetMB, duration float64) (int, error) {
	target, err := TargetBitrateKbps(targetMB, duration)
	if err != nil {
		return 0, err
	}
	kbps := int(target * Headroom)
	if kbps < 1 {
		kbps = 1
	}
	return kbps, nil
}
