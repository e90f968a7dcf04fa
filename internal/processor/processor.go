package processor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/aliskhannn/image-batch/internal/model"
)

// OutputPrefix is prepended to the source base name to form the output file name.
const OutputPrefix = "processed_"

// fileStorage defines the interface for file storage.
// It allows loading source images and saving processed ones.
type fileStorage interface {
	Save(ctx context.Context, dir, filename string, src io.Reader) (string, error)
	Load(ctx context.Context, path string) (io.ReadCloser, error)
}

// Processor executes a single image task: load, filter, encode and save.
type Processor struct {
	fileStorage fileStorage
}

// New creates a new Processor with the given file storage backend.
func New(fs fileStorage) *Processor {
	return &Processor{fileStorage: fs}
}

// OutputName returns the file name a processed copy of source is saved under.
func OutputName(source string) string {
	return OutputPrefix + filepath.Base(source)
}

// Process applies the task's filters to its source image and writes the result
// into the task's output directory. The encoder is picked from the output file extension.
// Returns the path of the written file.
func (p *Processor) Process(ctx context.Context, task model.Task) (string, error) {
	// Load the original image from storage.
	srcReader, err := p.fileStorage.Load(ctx, task.Source)
	if err != nil {
		return "", fmt.Errorf("failed to load source image: %w", err)
	}
	defer srcReader.Close()

	// Decode into an image object.
	img, err := imaging.Decode(srcReader)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	out := Apply(img, task.Filters)

	filename := OutputName(task.Source)
	format, err := imaging.FormatFromFilename(filename)
	if err != nil {
		return "", fmt.Errorf("failed to pick encoder for %s: %w", filename, err)
	}

	// Encode before touching the output directory so a failed encode leaves no partial file.
	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, out, format); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	dst, err := p.fileStorage.Save(ctx, task.OutputDir, filename, buf)
	if err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}

	return dst, nil
}
