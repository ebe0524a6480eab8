package render

import (
	"fmt"
	"io/fs"

	"github.com/golang/freetype/truetype"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	fontCacheSize = 16
	faceCacheSize = 128
)

var defaultFont = func() *truetype.Font {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		panic(fmt.Sprintf("parsing embedded font: %v", err))
	}
	return f
}()

type faceKey struct {
	font *truetype.Font
	size float64
}

// fontCache holds parsed template fonts and the faces derived from them.
// Faces are keyed by (font, size); the size-fitting search probes many sizes
// per region, so hits dominate.
type fontCache struct {
	fonts *lru.Cache[string, *truetype.Font]
	faces *lru.Cache[faceKey, font.Face]
}

func newFontCache() *fontCache {
	fonts, err := lru.New[string, *truetype.Font](fontCacheSize)
	if err != nil {
		panic(err)
	}
	faces, err := lru.New[faceKey, font.Face](faceCacheSize)
	if err != nil {
		panic(err)
	}
	return &fontCache{fonts: fonts, faces: faces}
}

// load returns the parsed font at path inside fsys, or the embedded default
// when path is empty.
func (c *fontCache) load(fsys fs.FS, cacheKey, path string) (*truetype.Font, error) {
	if path == "" {
		return defaultFont, nil
	}
	if f, ok := c.fonts.Get(cacheKey); ok {
		return f, nil
	}
	raw, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("reading font %s: %w", path, err)
	}
	f, err := truetype.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing font %s: %w", path, err)
	}
	c.fonts.Add(cacheKey, f)
	return f, nil
}

func (c *fontCache) face(f *truetype.Font, size float64) font.Face {
	key := faceKey{font: f, size: size}
	if face, ok := c.faces.Get(key); ok {
		return face
	}
	face := truetype.NewFace(f, &truetype.Options{Size: size})
	c.faces.Add(key, face)
	return face
}
