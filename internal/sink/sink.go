// Package sink receives one line per finished task plus the batch diagnostics.
// Every implementation is safe for concurrent use and writes each message as a unit.
package sink

import (
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aliskhannn/image-batch/internal/model"
)

// Text writes bare lines such as "Processed image: out/processed_a.png".
type Text struct {
	mu sync.Mutex
	w  io.Writer
}

// NewText creates a Text sink writing to w.
func NewText(w io.Writer) *Text {
	return &Text{w: w}
}

// Report writes the result line.
func (t *Text) Report(res model.Result) {
	t.writeLine(res.Message())
}

// Diagnostic writes msg as its own line.
func (t *Text) Diagnostic(msg string) {
	t.writeLine(msg)
}

func (t *Text) writeLine(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// One Write per line keeps concurrent messages from interleaving.
	_, _ = fmt.Fprintln(t.w, line)
}

// Logger reports through a zerolog logger, one event per message.
type Logger struct {
	log zerolog.Logger
}

// NewLogger creates a Logger sink.
func NewLogger(log zerolog.Logger) *Logger {
	return &Logger{log: log}
}

// Report logs successes at info level and failures at error level.
func (l *Logger) Report(res model.Result) {
	if res.OK() {
		l.log.Info().
			Str("task_id", res.TaskID.String()).
			Str("source", res.Source).
			Str("output", res.Output).
			Dur("took", res.Duration).
			Msg(res.Message())
		return
	}

	l.log.Error().
		Err(res.Err).
		Str("task_id", res.TaskID.String()).
		Str("source", res.Source).
		Dur("took", res.Duration).
		Msg(res.Message())
}

// Diagnostic logs msg as a warning.
func (l *Logger) Diagnostic(msg string) {
	l.log.Warn().Msg(msg)
}
