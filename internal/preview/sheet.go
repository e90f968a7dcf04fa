package preview

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"path/filepath"
	"sort"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/aliskhannn/image-batch/internal/model"
)

// ErrEmptySheet is returned when no successful result is available to draw.
var ErrEmptySheet = errors.New("no processed images to put on the sheet")

const (
	captionHeight = 20
	captionPoints = 12
	padding       = 4
)

// loader opens processed files.
type loader interface {
	Load(ctx context.Context, path string) (io.ReadCloser, error)
}

// Options controls the sheet layout.
type Options struct {
	Columns  int    // thumbnails per row
	CellSize int    // thumbnail edge in pixels
	FontPath string // TTF font for captions; empty uses the built-in face
}

// Sheet renders a contact sheet of processed images: a grid of thumbnails,
// each captioned with its file name.
type Sheet struct {
	files loader
	opts  Options
}

// New creates a Sheet. Non-positive options fall back to 4 columns of 160px cells.
func New(files loader, opts Options) *Sheet {
	if opts.Columns <= 0 {
		opts.Columns = 4
	}
	if opts.CellSize <= 0 {
		opts.CellSize = 160
	}
	return &Sheet{files: files, opts: opts}
}

// Render draws the successful results, ordered by output path.
func (s *Sheet) Render(ctx context.Context, results []model.Result) (image.Image, error) {
	outputs := make([]string, 0, len(results))
	for _, res := range results {
		if res.OK() {
			outputs = append(outputs, res.Output)
		}
	}
	if len(outputs) == 0 {
		return nil, ErrEmptySheet
	}
	sort.Strings(outputs)

	cols := min(s.opts.Columns, len(outputs))
	rows := (len(outputs) + cols - 1) / cols
	cell := s.opts.CellSize

	dc := gg.NewContext(cols*cell, rows*(cell+captionHeight))
	dc.SetColor(color.White)
	dc.Clear()

	if s.opts.FontPath != "" {
		if err := dc.LoadFontFace(s.opts.FontPath, captionPoints); err != nil {
			return nil, fmt.Errorf("failed to load font: %w", err)
		}
	}

	for i, out := range outputs {
		img, err := s.load(ctx, out)
		if err != nil {
			return nil, err
		}

		x := (i % cols) * cell
		y := (i / cols) * (cell + captionHeight)

		thumb := imaging.Fit(img, cell-2*padding, cell-2*padding, imaging.Lanczos)
		dc.DrawImageAnchored(thumb, x+cell/2, y+cell/2, 0.5, 0.5)

		dc.SetColor(color.Black)
		caption := fitCaption(dc, filepath.Base(out), float64(cell-2*padding))
		dc.DrawStringAnchored(caption, float64(x+cell/2), float64(y+cell+captionHeight/2), 0.5, 0.5)
	}

	return dc.Image(), nil
}

// Save renders the sheet and writes it to path, encoded by the path's extension.
func (s *Sheet) Save(ctx context.Context, results []model.Result, path string) error {
	img, err := s.Render(ctx, results)
	if err != nil {
		return err
	}

	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save contact sheet: %w", err)
	}

	return nil
}

func (s *Sheet) load(ctx context.Context, path string) (image.Image, error) {
	rc, err := s.files.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	defer rc.Close()

	img, err := imaging.Decode(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return img, nil
}

// fitCaption shortens text with a trailing "..." until it fits in width.
func fitCaption(dc *gg.Context, text string, width float64) string {
	if w, _ := dc.MeasureString(text); w <= width {
		return text
	}

	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + "..."
		if w, _ := dc.MeasureString(candidate); w <= width {
			return candidate
		}
	}

	return ""
}
