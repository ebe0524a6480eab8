// Package sink delivers rendered image bytes. The rendering core's contract
// ends at producing the bytes; nothing here is retried.
package sink

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/memelab/memegen/pkg/render"
	"github.com/natefinch/atomic"
)

// Sink accepts one rendered image for delivery.
type Sink interface {
	Deliver(img *render.Image) error
}

// File writes the image to Path atomically, so an existing file at Path is
// never left half-written.
type File struct {
	Path string
}

func (f File) Deliver(img *render.Image) error {
	if err := atomic.WriteFile(f.Path, bytes.NewReader(img.Data)); err != nil {
		return fmt.Errorf("writing %s: %w", f.Path, err)
	}
	return nil
}

// Writer streams the encoded image to W, typically stdout.
type Writer struct {
	W io.Writer
}

func (w Writer) Deliver(img *render.Image) error {
	if _, err := w.W.Write(img.Data); err != nil {
		return fmt.Errorf("writing image: %w", err)
	}
	return nil
}

// ShareCommand hands the image to an external sharing helper (for example
// termux-share on Android): the image is written to a temp file and the
// command is invoked with that path appended to Args.
type ShareCommand struct {
	Command string
	Args    []string
}

func (s ShareCommand) Deliver(img *render.Image) error {
	path := filepath.Join(os.TempDir(), "memegen-share."+img.Format)
	if err := atomic.WriteFile(path, bytes.NewReader(img.Data)); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	args := append(append([]string{}, s.Args...), path)
	cmd := exec.Command(s.Command, args...)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("running %s: %w", s.Command, err)
	}
	return nil
}
