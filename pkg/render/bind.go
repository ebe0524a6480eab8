package render

import (
	"fmt"

	"github.com/memelab/memegen/pkg/catalog"
)

// BoundRegion pairs a template region with the text that will be rendered
// into it, either a caller argument or the region's declared default.
type BoundRegion struct {
	Region catalog.Region
	Text   string
}

// ArityError reports more arguments than the template has regions.
type ArityError struct {
	Template string
	Expected int
	Got      int
}

func (e ArityError) Error() string {
	return fmt.Sprintf("template %q takes at most %d argument(s), got %d", e.Template, e.Expected, e.Got)
}

// Bind maps args positionally onto the template's regions, in declaration
// order. Supplying fewer arguments than regions is fine: unfilled regions
// keep their declared default text, so partially specified templates render.
// Supplying more than there are regions is an ArityError.
func Bind(def catalog.Definition, args []string) ([]BoundRegion, error) {
	if len(args) > len(def.Regions) {
		return nil, ArityError{Template: def.Name, Expected: len(def.Regions), Got: len(args)}
	}
	bound := make([]BoundRegion, len(def.Regions))
	for i, region := range def.Regions {
		text := region.Default
		if i < len(args) {
			text = args[i]
		}
		bound[i] = BoundRegion{Region: region, Text: text}
	}
	return bound, nil
}
