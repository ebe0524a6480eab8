// Package cmdutil provides utility functions specifically for the memegen CLI.
package cmdutil

import (
	"log"

	"github.com/memelab/memegen/pkg/config"
	"github.com/memelab/memegen/pkg/engine"
	"github.com/memelab/memegen/pkg/render"
	"github.com/memelab/memegen/pkg/sink"
	"github.com/memelab/memegen/pkg/source"
)

// MustLoadConfig loads the config file at path, or the per-user default
// location when path is empty. Configuration problems are fatal for the CLI.
func MustLoadConfig(path string) config.File {
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			log.Fatalf("locating config file: %s", err)
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("loading config: %s", err)
	}
	return cfg
}

// MustGetEngine builds the full pipeline from a loaded config: descriptors,
// a git-backed syncer over the user cache directory, and a renderer carrying
// the config's watermark and sizing.
func MustGetEngine(cfg config.File) *engine.Engine {
	descs, err := cfg.Descriptors()
	if err != nil {
		log.Fatalf("reading sources from config: %s", err)
	}

	cacheDir, err := config.DefaultCacheDir()
	if err != nil {
		log.Fatalf("locating cache: %s", err)
	}

	renderer := render.NewRenderer()
	renderer.Watermark = cfg.WatermarkText()
	if cfg.WatermarkSizeFraction > 0 {
		renderer.WatermarkFraction = cfg.WatermarkSizeFraction
	}
	if cfg.MaxFontSize > 0 {
		renderer.MaxFontSize = cfg.MaxFontSize
	}

	eng, err := engine.New(descs, source.NewSyncer(cacheDir, source.NewGitClient()), renderer)
	if err != nil {
		log.Fatalf("configuring sources: %s", err)
	}
	return eng
}

// MustGetEngineWith is MustGetEngine with CLI flag overrides applied on top
// of the config file: watermark replaces the configured text, noWatermark
// disables it, maxSize overrides when positive.
func MustGetEngineWith(cfg config.File, watermark string, noWatermark bool, maxSize float64) *engine.Engine {
	if noWatermark {
		empty := ""
		cfg.Watermark = &empty
	} else if watermark != "" {
		cfg.Watermark = &watermark
	}
	if maxSize > 0 {
		cfg.MaxFontSize = maxSize
	}
	return MustGetEngine(cfg)
}

// SinkFor picks the delivery sink for the generate command: "-" streams to
// stdout, any other non-empty value is a file path, and empty falls back to
// <template>.<format> in the working directory.
func SinkFor(output, template, format string, stdout sink.Writer) sink.Sink {
	switch output {
	case "-":
		return stdout
	case "":
		return sink.File{Path: template + "." + format}
	default:
		return sink.File{Path: output}
	}
}
