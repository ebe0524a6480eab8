// Package config loads the CLI's JSON configuration file and turns it into
// source descriptors and render options. The library packages never read
// configuration themselves; they take the parsed values.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/memelab/memegen/pkg/source"
)

// DefaultSourceURL is the template repository used when no sources are
// configured.
const DefaultSourceURL = "https://github.com/TheRawMeatball/memeinator-memesrc.git"

// DefaultWatermark is the watermark applied unless overridden or disabled.
const DefaultWatermark = "Made with memegen"

// sourceEntry is one element of the "sources" list: exactly one of Git or
// Local set.
type sourceEntry struct {
	Git   *gitEntry   `json:"git,omitempty"`
	Local *localEntry `json:"local,omitempty"`
}

type gitEntry struct {
	URL   string `json:"url"`
	Alias string `json:"alias"`
}

type localEntry struct {
	Path string `json:"path"`
}

// File is the parsed configuration file.
type File struct {
	Sources               []sourceEntry `json:"sources,omitempty"`
	Watermark             *string       `json:"watermark,omitempty"`
	WatermarkSizeFraction float64       `json:"watermark_size_fraction,omitempty"`
	MaxFontSize           float64       `json:"max_font_size,omitempty"`
}

// DefaultPath returns the per-user config file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating config dir: %w", err)
	}
	return filepath.Join(dir, "memegen", "config.json"), nil
}

// DefaultCacheDir returns the per-user root for git source caches.
func DefaultCacheDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locating cache dir: %w", err)
	}
	return filepath.Join(dir, "memegen"), nil
}

// Load reads the config file at path. A missing file is not an error; it
// yields the zero File, whose accessors fall back to defaults. A present but
// malformed file is an error, so a typo never silently reverts to defaults.
func Load(path string) (File, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return File{}, nil
	}
	if err != nil {
		return File{}, fmt.Errorf("reading config: %w", err)
	}
	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return File{}, fmt.Errorf("config file %s is broken: %w", path, err)
	}
	return f, nil
}

// Descriptors converts the configured source list, falling back to the
// default template repository when the list is empty. Entries that name
// neither a git nor a local source are an error.
func (f File) Descriptors() ([]source.Descriptor, error) {
	if len(f.Sources) == 0 {
		return []source.Descriptor{source.GitSource{URL: DefaultSourceURL, Name: "default"}}, nil
	}
	descs := make([]source.Descriptor, 0, len(f.Sources))
	for i, entry := range f.Sources {
		switch {
		case entry.Git != nil && entry.Local == nil:
			descs = append(descs, source.GitSource{URL: entry.Git.URL, Name: entry.Git.Alias})
		case entry.Local != nil && entry.Git == nil:
			descs = append(descs, source.LocalSource{Path: entry.Local.Path})
		default:
			return nil, fmt.Errorf("source entry %d must set exactly one of git or local", i)
		}
	}
	return descs, nil
}

// WatermarkText returns the configured watermark, the default when unset, or
// empty when explicitly set to "".
func (f File) WatermarkText() string {
	if f.Watermark == nil {
		return DefaultWatermark
	}
	return *f.Watermark
}
