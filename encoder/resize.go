package encoder

import (
	"image"

	"github.com/disintegration/imaging"
)

// ScaledSize returns the dimensions of a w×h image scaled to percent,
// truncated toward zero and never smaller than one pixel.
func ScaledSize(w, h, percent int) (int, int) {
	sw, sh := w*percent/100, h*percent/100
	if sw < 1 {
		sw = 1
	}
	if sh < 1 {
		sh = 1
	}
	return sw, sh
}

// Resize scales img proportionally with a Lanczos filter. At 100 percent or
// more the image is returned unchanged.
func Resize(img image.Image, percent int) image.Image {
	if percent >= 100 {
		return img
	}
	b := img.Bounds()
	w, h := ScaledSize(b.Dx(), b.Dy(), percent)
	return imaging.Resize(img, w, h, imaging.Lanczos)
}
