package reducer

import (
	"fmt"
	"time"

	"shrink/sizefmt"
)

// Kind is the conversion path an upload takes.
type Kind string

const (
	KindImage   Kind = "image"
	KindGeneric Kind = "generic"
	KindVideo   Kind = "video"
)

// Upload is one file as received from the user.
type Upload struct {
	Filename string
	Data     []byte
}

// Result is the reduced file plus what the user is shown about it.
type Result struct {
	ID             string // history record, empty when history is off
	Kind           Kind
	Filename       string
	MIMEType       string
	Data           []byte
	OriginalSize   int64
	CompressedSize int64
	Elapsed        time.Duration
	Width, Height  int    // images only
	Encoder        string // backend or codec that produced Data
}

func (r *Result) OriginalSizeText() string {
	return sizefmt.FormatBytes(r.OriginalSize)
}

func (r *Result) CompressedSizeText() string {
	return sizefmt.FormatBytes(r.CompressedSize)
}

// ElapsedText renders Elapsed the way it is shown to the user, e.g. "0.42 seconds".
func (r *Result) ElapsedText() string {
	return fmt.Sprintf("%.2f seconds", r.Elapsed.Seconds())
}

// SavedPercent is the share of the original removed, negative when the output grew.
func (r *Result) SavedPercent() float64 {
	if r.OriginalSize == 0 {
		return 0
	}
	return 100 * (1 - float64(r.CompressedSize)/float64(r.OriginalSize))
}
