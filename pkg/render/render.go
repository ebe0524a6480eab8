// Package render binds caller text into template regions and composites the
// final image.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/png"
	"io"

	"github.com/golang/freetype/truetype"
	logging "github.com/ipfs/go-log/v2"
	"github.com/memelab/memegen/pkg/catalog"
)

var log = logging.Logger("render")

// Defaults for a zero-configured Renderer, matching the CLI's flag defaults.
const (
	DefaultMaxFontSize       = 600
	DefaultMinFontSize       = 5
	DefaultWatermarkFraction = 30
)

// Image is a rendered composite: raw encoded bytes plus the format they are
// encoded in ("png" or "gif").
type Image struct {
	Data   []byte
	Format string
}

// RenderError reports an unreadable or corrupt template asset (base image or
// declared font). Layout never produces a RenderError: text that cannot fit
// is clipped deterministically instead.
type RenderError struct {
	Template string
	Err      error
}

func (e RenderError) Error() string {
	return fmt.Sprintf("rendering template %q: %v", e.Template, e.Err)
}

func (e RenderError) Unwrap() error { return e.Err }

// Renderer composites bound text onto template base images. A Renderer is
// safe for sequential reuse across templates; its font caches carry over
// between calls. The zero value renders with default sizing and no
// watermark; NewRenderer is equivalent.
type Renderer struct {
	// MaxFontSize and MinFontSize bound the size search for region text.
	MaxFontSize float64
	MinFontSize float64
	// Watermark is drawn near the bottom-left of every output; empty
	// disables it.
	Watermark string
	// WatermarkFraction divides the smaller image dimension to get the
	// watermark font size.
	WatermarkFraction float64

	cache *fontCache
}

// NewRenderer returns a Renderer with default sizing and no watermark.
func NewRenderer() *Renderer {
	return &Renderer{
		MaxFontSize:       DefaultMaxFontSize,
		MinFontSize:       DefaultMinFontSize,
		WatermarkFraction: DefaultWatermarkFraction,
		cache:             newFontCache(),
	}
}

// prepare fills in the cache and any unset sizing so a zero-value Renderer
// behaves like one from NewRenderer.
func (r *Renderer) prepare() {
	if r.cache == nil {
		r.cache = newFontCache()
	}
	if r.MaxFontSize <= 0 {
		r.MaxFontSize = DefaultMaxFontSize
	}
	if r.MinFontSize <= 0 {
		r.MinFontSize = DefaultMinFontSize
	}
	if r.WatermarkFraction <= 0 {
		r.WatermarkFraction = DefaultWatermarkFraction
	}
}

// Render loads the definition's base image and composites every bound region
// over it in declaration order, then the watermark if one is set. Output is
// PNG for static templates and GIF for animated ones, and is byte-identical
// across calls with identical inputs.
func (r *Renderer) Render(def catalog.Definition, bound []BoundRegion) (*Image, error) {
	r.prepare()
	f, err := r.cache.load(def.FS, def.Source+"/"+def.Font, def.Font)
	if err != nil {
		return nil, RenderError{Template: def.Name, Err: err}
	}

	file, err := def.FS.Open(def.Image)
	if err != nil {
		return nil, RenderError{Template: def.Name, Err: fmt.Errorf("opening base image: %w", err)}
	}
	defer file.Close()

	log.Debugf("rendering %s with %d region(s)", def.Name, len(bound))
	if def.Animated {
		return r.renderGIF(def, f, bound, file)
	}
	return r.renderPNG(def, f, bound, file)
}

// placedMask is one rasterized text block and the canvas point it lands at.
type placedMask struct {
	mask *image.Alpha
	at   image.Point
}

func (r *Renderer) regionMasks(f *truetype.Font, bound []BoundRegion) []placedMask {
	var masks []placedMask
	for _, b := range bound {
		if b.Text == "" {
			continue
		}
		box := b.Region
		mask := r.textMask(f, b.Text, box.Max.X-box.Min.X, box.Max.Y-box.Min.Y)
		masks = append(masks, placedMask{mask: mask, at: box.Min})
	}
	return masks
}

func (r *Renderer) renderPNG(def catalog.Definition, f *truetype.Font, bound []BoundRegion, file io.Reader) (*Image, error) {
	src, err := png.Decode(file)
	if err != nil {
		return nil, RenderError{Template: def.Name, Err: fmt.Errorf("decoding base image: %w", err)}
	}
	base := toNRGBA(src)

	for _, m := range r.regionMasks(f, bound) {
		blend(base, m.mask, def.Color, m.at)
	}
	if r.Watermark != "" {
		w, h := base.Rect.Dx(), base.Rect.Dy()
		mask, at := r.watermarkMask(f, r.Watermark, w, h)
		blend(base, mask, def.Color, at)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, base); err != nil {
		return nil, RenderError{Template: def.Name, Err: fmt.Errorf("encoding: %w", err)}
	}
	return &Image{Data: buf.Bytes(), Format: "png"}, nil
}

func (r *Renderer) renderGIF(def catalog.Definition, f *truetype.Font, bound []BoundRegion, file io.Reader) (*Image, error) {
	g, err := gif.DecodeAll(file)
	if err != nil || len(g.Image) == 0 {
		if err == nil {
			err = fmt.Errorf("no frames")
		}
		return nil, RenderError{Template: def.Name, Err: fmt.Errorf("decoding base image: %w", err)}
	}

	canvasW, canvasH := g.Config.Width, g.Config.Height
	if canvasW == 0 || canvasH == 0 {
		canvasW, canvasH = g.Image[0].Rect.Dx(), g.Image[0].Rect.Dy()
	}

	// Masks are laid out once in canvas coordinates and applied to every
	// frame, like the static path.
	masks := r.regionMasks(f, bound)
	if r.Watermark != "" {
		mask, at := r.watermarkMask(f, r.Watermark, canvasW, canvasH)
		masks = append(masks, placedMask{mask: mask, at: at})
	}

	for i, frame := range g.Image {
		flat := image.NewNRGBA(frame.Rect)
		draw.Draw(flat, frame.Rect, frame, frame.Rect.Min, draw.Src)
		for _, m := range masks {
			blend(flat, m.mask, def.Color, m.at)
		}
		repainted := image.NewPaletted(frame.Rect, frame.Palette)
		draw.Draw(repainted, frame.Rect, flat, frame.Rect.Min, draw.Src)
		g.Image[i] = repainted
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		return nil, RenderError{Template: def.Name, Err: fmt.Errorf("encoding: %w", err)}
	}
	return &Image{Data: buf.Bytes(), Format: "gif"}, nil
}

// blend composites a coverage mask over dst in the given straight-alpha
// color, anchored at the canvas point at. Mask pixels falling outside dst
// are dropped, which is what clips oversized text.
func blend(dst *image.NRGBA, mask *image.Alpha, col [4]float64, at image.Point) {
	bounds := mask.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			cov := float64(mask.AlphaAt(x, y).A) / 255
			if cov == 0 {
				continue
			}
			px, py := at.X+x-bounds.Min.X, at.Y+y-bounds.Min.Y
			if !(image.Pt(px, py).In(dst.Rect)) {
				continue
			}
			prev := dst.NRGBAAt(px, py)
			dst.SetNRGBA(px, py, color.NRGBA{
				R: mix(prev.R, col[0], cov),
				G: mix(prev.G, col[1], cov),
				B: mix(prev.B, col[2], cov),
				A: mix(prev.A, col[3], cov),
			})
		}
	}
}

func mix(base uint8, target, cov float64) uint8 {
	v := (1-cov)*(float64(base)/255) + cov*target
	return uint8(v * 255)
}

func toNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok {
		return n
	}
	out := image.NewNRGBA(src.Bounds())
	draw.Draw(out, src.Bounds(), src, src.Bounds().Min, draw.Src)
	return out
}
