package render_test

import (
	"fmt"
	"image"
	"testing"

	"github.com/memelab/memegen/pkg/catalog"
	"github.com/memelab/memegen/pkg/render"
	"github.com/stretchr/testify/require"
)

func regionsFor(n int) []catalog.Region {
	regions := make([]catalog.Region, n)
	for i := range regions {
		regions[i] = catalog.Region{
			Min:     image.Pt(0, i*30),
			Max:     image.Pt(100, i*30+25),
			Default: fmt.Sprintf("default %d", i),
		}
	}
	return regions
}

func TestBind(t *testing.T) {
	def := catalog.Definition{Name: "gru-plan", Regions: regionsFor(4)}

	t.Run("binds each argument to the region at the same index", func(t *testing.T) {
		bound, err := render.Bind(def, []string{"p1", "p2", "p3", "p3"})
		require.NoError(t, err)
		require.Len(t, bound, 4)
		require.Equal(t, "p1", bound[0].Text)
		require.Equal(t, "p3", bound[2].Text)
		require.Equal(t, "p3", bound[3].Text)
	})

	t.Run("fills missing trailing arguments from region defaults", func(t *testing.T) {
		bound, err := render.Bind(def, []string{"p1", "p2"})
		require.NoError(t, err)
		require.Len(t, bound, 4)
		require.Equal(t, "p2", bound[1].Text)
		require.Equal(t, "default 2", bound[2].Text)
		require.Equal(t, "default 3", bound[3].Text)
	})

	t.Run("binds no arguments at all", func(t *testing.T) {
		bound, err := render.Bind(def, nil)
		require.NoError(t, err)
		require.Len(t, bound, 4)
		require.Equal(t, "default 0", bound[0].Text)
	})

	t.Run("rejects too many arguments with the expected maximum", func(t *testing.T) {
		_, err := render.Bind(def, []string{"p1", "p2", "p3", "p4", "p5"})
		var arity render.ArityError
		require.ErrorAs(t, err, &arity)
		require.Equal(t, 4, arity.Expected)
		require.Equal(t, 5, arity.Got)
		require.Equal(t, "gru-plan", arity.Template)
	})

	t.Run("a zero-region template accepts no arguments", func(t *testing.T) {
		static := catalog.Definition{Name: "static"}

		bound, err := render.Bind(static, nil)
		require.NoError(t, err)
		require.Empty(t, bound)

		_, err = render.Bind(static, []string{"anything"})
		var arity render.ArityError
		require.ErrorAs(t, err, &arity)
		require.Equal(t, 0, arity.Expected)
	})
}
