package engine_test

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/memelab/memegen/pkg/catalog"
	"github.com/memelab/memegen/pkg/engine"
	"github.com/memelab/memegen/pkg/render"
	"github.com/memelab/memegen/pkg/source"
	"github.com/stretchr/testify/require"
)

type noopGit struct{}

func (noopGit) Clone(ctx context.Context, dir, url string) error { return os.MkdirAll(dir, 0o755) }
func (noopGit) Update(ctx context.Context, dir string) error     { return nil }

func makePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	base := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range base.Pix {
		base.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, base))
	return buf.Bytes()
}

// writeTemplate lays a template directory into a local source root.
func writeTemplate(t *testing.T, root, name string, regions int, w, h int) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	manifest := `{"text":[`
	for i := 0; i < regions; i++ {
		if i > 0 {
			manifest += ","
		}
		manifest += fmt.Sprintf(`{"min":[0,%d],"max":[%d,%d],"default":"d%d"}`, i*20, w, i*20+18, i)
	}
	manifest += `]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, catalog.ManifestName), []byte(manifest), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), makePNG(t, w, h), 0o644))
}

func newEngine(t *testing.T, descs ...source.Descriptor) *engine.Engine {
	t.Helper()
	eng, err := engine.New(descs, source.NewSyncer(t.TempDir(), noopGit{}), render.NewRenderer())
	require.NoError(t, err)
	return eng
}

func TestNew(t *testing.T) {
	t.Run("rejects duplicate aliases before any I/O", func(t *testing.T) {
		_, err := engine.New([]source.Descriptor{
			source.GitSource{URL: "https://example.com/a.git", Name: "x"},
			source.GitSource{URL: "https://example.com/b.git", Name: "x"},
		}, source.NewSyncer(t.TempDir(), noopGit{}), render.NewRenderer())
		require.ErrorAs(t, err, &source.ErrDuplicateAlias{})
	})
}

func TestGenerate(t *testing.T) {
	root := t.TempDir()
	writeTemplate(t, root, "gru-plan", 4, 200, 100)
	eng := newEngine(t, source.LocalSource{Path: root})

	t.Run("renders a known template with positional arguments", func(t *testing.T) {
		img, err := eng.Generate("gru-plan", []string{"p1", "p2", "p3", "p3"})
		require.NoError(t, err)
		require.Equal(t, "png", img.Format)

		decoded, err := png.Decode(bytes.NewReader(img.Data))
		require.NoError(t, err)
		require.Equal(t, image.Rect(0, 0, 200, 100), decoded.Bounds())
	})

	t.Run("renders with fewer arguments than regions", func(t *testing.T) {
		_, err := eng.Generate("gru-plan", []string{"p1"})
		require.NoError(t, err)
	})

	t.Run("fails with the expected arity on too many arguments", func(t *testing.T) {
		_, err := eng.Generate("gru-plan", []string{"p1", "p2", "p3", "p4", "p5"})
		var arity render.ArityError
		require.ErrorAs(t, err, &arity)
		require.Equal(t, 4, arity.Expected)
		require.Equal(t, 5, arity.Got)
	})

	t.Run("fails with a typed error for an unknown template", func(t *testing.T) {
		_, err := eng.Generate("no-such-template", nil)
		var notFound catalog.ErrTemplateNotFound
		require.ErrorAs(t, err, &notFound)
	})
}

func TestOverridePrecedence(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	// Same name, different base image sizes, so the output betrays which
	// source won.
	writeTemplate(t, first, "x", 0, 100, 50)
	writeTemplate(t, second, "x", 0, 200, 100)

	eng := newEngine(t, source.LocalSource{Path: first}, source.LocalSource{Path: second})
	img, err := eng.Generate("x", nil)
	require.NoError(t, err)
	decoded, err := png.Decode(bytes.NewReader(img.Data))
	require.NoError(t, err)
	require.Equal(t, 100, decoded.Bounds().Dx())

	eng = newEngine(t, source.LocalSource{Path: second}, source.LocalSource{Path: first})
	img, err = eng.Generate("x", nil)
	require.NoError(t, err)
	decoded, err = png.Decode(bytes.NewReader(img.Data))
	require.NoError(t, err)
	require.Equal(t, 200, decoded.Bounds().Dx())
}

func TestListTemplates(t *testing.T) {
	t.Run("lists the union of readable sources, skipping unavailable ones", func(t *testing.T) {
		root := t.TempDir()
		writeTemplate(t, root, "drake", 2, 100, 100)
		writeTemplate(t, root, "gru-plan", 4, 100, 100)

		eng := newEngine(t,
			source.LocalSource{Path: root},
			source.LocalSource{Path: filepath.Join(root, "no-such-dir")},
		)
		names, err := eng.ListTemplates()
		require.NoError(t, err)
		require.Equal(t, []string{"drake", "gru-plan"}, names)
	})

	t.Run("reports a broken template but lists the rest", func(t *testing.T) {
		root := t.TempDir()
		writeTemplate(t, root, "good", 1, 100, 100)
		require.NoError(t, os.MkdirAll(filepath.Join(root, "bad"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(root, "bad", catalog.ManifestName), []byte("{broken"), 0o644))

		eng := newEngine(t, source.LocalSource{Path: root})
		cat, report, err := eng.Catalog()
		require.NoError(t, err)
		require.Len(t, report.Templates, 1)
		require.Equal(t, "bad", report.Templates[0].Template)
		require.Equal(t, []string{"good"}, cat.Names())
	})
}

func TestUpdateSources(t *testing.T) {
	root := t.TempDir()
	eng := newEngine(t,
		source.LocalSource{Path: root},
		source.LocalSource{Path: filepath.Join(root, "missing")},
	)

	outcomes, err := eng.UpdateSources(context.Background())
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	require.True(t, outcomes[0].OK())
	require.False(t, outcomes[1].OK())
}

func TestMakeTemplate(t *testing.T) {
	t.Run("writes into the first local source and becomes resolvable", func(t *testing.T) {
		root := t.TempDir()
		eng := newEngine(t,
			source.GitSource{URL: "https://example.com/upstream.git", Name: "upstream"},
			source.LocalSource{Path: root},
		)

		regions := []catalog.Region{{Min: image.Pt(0, 0), Max: image.Pt(50, 20)}}
		require.NoError(t, eng.MakeTemplate("minted", makePNG(t, 100, 100), regions))
		require.FileExists(t, filepath.Join(root, "minted", "image.png"))
		require.FileExists(t, filepath.Join(root, "minted", catalog.ManifestName))

		names, err := eng.ListTemplates()
		require.NoError(t, err)
		require.Contains(t, names, "minted")
	})

	t.Run("fails without a local source", func(t *testing.T) {
		eng := newEngine(t, source.GitSource{URL: "https://example.com/a.git", Name: "a"})
		err := eng.MakeTemplate("minted", makePNG(t, 10, 10), nil)
		require.ErrorIs(t, err, engine.ErrNoLocalSource)
	})
}
