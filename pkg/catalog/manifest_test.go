package catalog_test

import (
	"image"
	"testing"

	"github.com/memelab/memegen/pkg/catalog"
	"github.com/memelab/memegen/pkg/source"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestManifestParsing(t *testing.T) {
	t.Run("keeps region declaration order and defaults", func(t *testing.T) {
		src := memSource(t, "a", map[string]string{"tpl": `{
			"color": [1, 0, 0, 1],
			"text": [
				{"min": [0, 0], "max": [50, 20], "default": "top"},
				{"min": [0, 30], "max": [50, 60]}
			]
		}`})

		cat, skipped := catalog.Build([]source.Synced{src})
		require.Empty(t, skipped)

		def, err := cat.Resolve("tpl")
		require.NoError(t, err)
		require.Equal(t, [4]float64{1, 0, 0, 1}, def.Color)
		require.Len(t, def.Regions, 2)
		require.Equal(t, "top", def.Regions[0].Default)
		require.Equal(t, "", def.Regions[1].Default)
		require.Equal(t, image.Pt(0, 30), def.Regions[1].Min)
	})

	t.Run("rejects an empty region box", func(t *testing.T) {
		src := memSource(t, "a", map[string]string{"tpl": `{"text":[{"min":[10,10],"max":[10,40]}]}`})
		_, skipped := catalog.Build([]source.Synced{src})
		require.Len(t, skipped, 1)
		require.ErrorContains(t, skipped[0], "empty box")
	})

	t.Run("rejects a declared font that is not in the source", func(t *testing.T) {
		src := memSource(t, "a", map[string]string{"tpl": `{"font":"missing.ttf","text":[]}`})
		_, skipped := catalog.Build([]source.Synced{src})
		require.Len(t, skipped, 1)
	})

	t.Run("prefers image.png over animated.gif", func(t *testing.T) {
		memFS := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(memFS, "tpl/"+catalog.ManifestName, []byte(`{}`), 0o644))
		require.NoError(t, afero.WriteFile(memFS, "tpl/image.png", []byte("png"), 0o644))
		require.NoError(t, afero.WriteFile(memFS, "tpl/animated.gif", []byte("gif"), 0o644))

		cat, skipped := catalog.Build([]source.Synced{{Alias: "a", FS: afero.NewIOFS(memFS)}})
		require.Empty(t, skipped)
		def, err := cat.Resolve("tpl")
		require.NoError(t, err)
		require.False(t, def.Animated)
		require.Equal(t, "tpl/image.png", def.Image)
	})

	t.Run("detects animated templates", func(t *testing.T) {
		memFS := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(memFS, "tpl/"+catalog.ManifestName, []byte(`{}`), 0o644))
		require.NoError(t, afero.WriteFile(memFS, "tpl/animated.gif", []byte("gif"), 0o644))

		cat, _ := catalog.Build([]source.Synced{{Alias: "a", FS: afero.NewIOFS(memFS)}})
		def, err := cat.Resolve("tpl")
		require.NoError(t, err)
		require.True(t, def.Animated)
	})
}

func TestEncodeManifest(t *testing.T) {
	regions := []catalog.Region{
		{Min: image.Pt(0, 0), Max: image.Pt(100, 40), Default: "hello"},
		{Min: image.Pt(0, 60), Max: image.Pt(100, 100)},
	}
	raw, err := catalog.EncodeManifest([4]float64{0, 0, 0, 1}, regions)
	require.NoError(t, err)

	// What the authoring path writes, the catalog must read back unchanged.
	memFS := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(memFS, "tpl/"+catalog.ManifestName, raw, 0o644))
	require.NoError(t, afero.WriteFile(memFS, "tpl/image.png", []byte("png"), 0o644))

	cat, skipped := catalog.Build([]source.Synced{{Alias: "a", FS: afero.NewIOFS(memFS)}})
	require.Empty(t, skipped)
	def, err := cat.Resolve("tpl")
	require.NoError(t, err)
	require.Equal(t, regions, def.Regions)
}
