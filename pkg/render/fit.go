package render

import (
	"image"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
)

// lineSpacing is the multiplier between wrapped lines, in font sizes.
const lineSpacing = 1.2

// sizeStep is the precision of the size search. The search is a plain
// bisection with a fixed stopping distance, so identical inputs always land
// on the identical size.
const sizeStep = 0.25

// fitSize finds the largest font size in [minSize, maxSize] at which text,
// word-wrapped to maxW, fits inside maxW x maxH. When even minSize does not
// fit, minSize is returned and the drawn text is clipped by the mask bounds;
// overflow degrades deterministically, it never errors.
func (r *Renderer) fitSize(f *truetype.Font, text string, maxW, maxH float64) float64 {
	if r.fits(f, text, r.MaxFontSize, maxW, maxH) {
		return r.MaxFontSize
	}
	lo, hi := r.MinFontSize, r.MaxFontSize
	for hi-lo > sizeStep {
		mid := (lo + hi) / 2
		if r.fits(f, text, mid, maxW, maxH) {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}

func (r *Renderer) fits(f *truetype.Font, text string, size, maxW, maxH float64) bool {
	dc := gg.NewContext(1, 1)
	dc.SetFontFace(r.cache.face(f, size))
	lines := dc.WordWrap(text, maxW)
	if float64(len(lines))*size*lineSpacing > maxH {
		return false
	}
	for _, line := range lines {
		// WordWrap cannot break a single word, so a long word can still
		// overflow the box width.
		if w, _ := dc.MeasureString(line); w > maxW {
			return false
		}
	}
	return true
}

// textMask rasterizes text into a w x h coverage mask: centered
// horizontally, anchored to the top of the box, word-wrapped, at the largest
// fitting size. The mask is later blended over the base image in the
// template's text color.
func (r *Renderer) textMask(f *truetype.Font, text string, w, h int) *image.Alpha {
	size := r.fitSize(f, text, float64(w), float64(h))
	dc := gg.NewContext(w, h)
	dc.SetFontFace(r.cache.face(f, size))
	dc.SetRGB(1, 1, 1)
	dc.DrawStringWrapped(text, float64(w)/2, 0, 0.5, 0, float64(w), lineSpacing, gg.AlignCenter)
	return dc.AsMask()
}

// watermarkMask rasterizes the watermark line for a base image of imgW x
// imgH, returning the mask and the canvas point to composite it at. The
// size scales with the smaller image dimension so the watermark stays
// proportionate across templates.
func (r *Renderer) watermarkMask(f *truetype.Font, text string, imgW, imgH int) (*image.Alpha, image.Point) {
	size := float64(min(imgW, imgH)) / r.WatermarkFraction
	maskH := int(size*lineSpacing) + 1
	dc := gg.NewContext(imgW, maskH)
	dc.SetFontFace(r.cache.face(f, size))
	dc.SetRGB(1, 1, 1)
	dc.DrawStringAnchored(text, 2, float64(maskH)/2, 0, 0.5)
	return dc.AsMask(), image.Pt(0, imgH-maskH)
}
