package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"path"
)

// ManifestName is the file each template directory must contain.
const ManifestName = "config.json"

// Base image file names, probed in order. A PNG template is a single frame;
// a GIF template renders text onto every frame.
const (
	baseImagePNG = "image.png"
	baseImageGIF = "animated.gif"
)

// Region is one declared text box on a template. Min is the top-left corner,
// Max the bottom-right, in base-image pixels. Default is the text rendered
// when the caller supplies no argument for this region.
type Region struct {
	Min     image.Point
	Max     image.Point
	Default string
}

// Definition is one named, resolved template: where its assets live, the
// text regions in declaration order, and the source alias it was loaded
// from. A definition with no regions is a static image that accepts no
// arguments.
type Definition struct {
	Name     string
	Source   string
	FS       fs.FS
	Dir      string
	Image    string
	Animated bool
	Font     string
	Color    [4]float64
	Regions  []Region
}

// manifest is the on-disk schema of config.json. Geometry points are
// two-element [x, y] arrays, matching the authoring tool's output.
type manifest struct {
	Color *[4]float64    `json:"color"`
	Font  string         `json:"font"`
	Text  []manifestText `json:"text"`
}

type manifestText struct {
	Min     [2]int `json:"min"`
	Max     [2]int `json:"max"`
	Default string `json:"default"`
}

// parseDefinition reads and validates one template directory rooted at dir
// inside fsys, resolving asset paths relative to that directory.
func parseDefinition(fsys fs.FS, dir, name, sourceAlias string) (Definition, error) {
	raw, err := fs.ReadFile(fsys, path.Join(dir, ManifestName))
	if err != nil {
		return Definition{}, fmt.Errorf("reading manifest: %w", err)
	}

	var m manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return Definition{}, fmt.Errorf("parsing manifest: %w", err)
	}

	def := Definition{
		Name:   name,
		Source: sourceAlias,
		FS:     fsys,
		Dir:    dir,
		Color:  [4]float64{0, 0, 0, 1},
	}
	if m.Color != nil {
		def.Color = *m.Color
	}
	if m.Font != "" {
		def.Font = path.Join(dir, m.Font)
		if _, err := fs.Stat(fsys, def.Font); err != nil {
			return Definition{}, fmt.Errorf("font %s: %w", m.Font, err)
		}
	}

	for i, t := range m.Text {
		r := Region{
			Min:     image.Pt(t.Min[0], t.Min[1]),
			Max:     image.Pt(t.Max[0], t.Max[1]),
			Default: t.Default,
		}
		if r.Max.X <= r.Min.X || r.Max.Y <= r.Min.Y {
			return Definition{}, fmt.Errorf("region %d has an empty box (%v to %v)", i, r.Min, r.Max)
		}
		def.Regions = append(def.Regions, r)
	}

	def.Image, def.Animated, err = findBaseImage(fsys, dir)
	if err != nil {
		return Definition{}, err
	}
	return def, nil
}

// EncodeManifest produces config.json bytes for the given color and
// regions, in the same schema parseDefinition reads. Used by template
// authoring.
func EncodeManifest(color [4]float64, regions []Region) ([]byte, error) {
	m := manifest{Color: &color}
	for _, r := range regions {
		m.Text = append(m.Text, manifestText{
			Min:     [2]int{r.Min.X, r.Min.Y},
			Max:     [2]int{r.Max.X, r.Max.Y},
			Default: r.Default,
		})
	}
	return json.MarshalIndent(m, "", "  ")
}

func findBaseImage(fsys fs.FS, dir string) (string, bool, error) {
	png := path.Join(dir, baseImagePNG)
	if _, err := fs.Stat(fsys, png); err == nil {
		return png, false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", false, fmt.Errorf("statting %s: %w", png, err)
	}
	gif := path.Join(dir, baseImageGIF)
	if _, err := fs.Stat(fsys, gif); err == nil {
		return gif, true, nil
	}
	return "", false, fmt.Errorf("template has neither %s nor %s", baseImagePNG, baseImageGIF)
}
