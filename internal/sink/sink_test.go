package sink

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/image-batch/internal/model"
)

func TestText_Lines(t *testing.T) {
	var buf bytes.Buffer
	s := NewText(&buf)

	s.Report(model.Result{Source: "in/a.png", Output: "out/processed_a.png"})
	s.Report(model.Result{Source: "in/b.txt", Err: errors.New("image: unknown format")})
	s.Diagnostic("select input and output folders")

	assert.Equal(t,
		"Processed image: out/processed_a.png\n"+
			"Error processing in/b.txt: image: unknown format\n"+
			"select input and output folders\n",
		buf.String())
}

func TestText_ConcurrentLinesStayWhole(t *testing.T) {
	var buf bytes.Buffer
	s := NewText(&buf)

	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Report(model.Result{Output: fmt.Sprintf("out/processed_%02d.png", i)})
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, n)
	for _, l := range lines {
		assert.Regexp(t, `^Processed image: out/processed_\d\d\.png$`, l)
	}
}

func TestLogger_Events(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogger(zerolog.New(&buf))

	s.Report(model.Result{Source: "in/a.png", Output: "out/processed_a.png"})
	s.Report(model.Result{Source: "in/b.txt", Err: errors.New("boom")})
	s.Diagnostic("select at least one filter to process")

	dec := json.NewDecoder(&buf)
	var events []map[string]any
	for dec.More() {
		var e map[string]any
		require.NoError(t, dec.Decode(&e))
		events = append(events, e)
	}
	require.Len(t, events, 3)

	assert.Equal(t, "info", events[0]["level"])
	assert.Equal(t, "Processed image: out/processed_a.png", events[0]["message"])
	assert.Equal(t, "out/processed_a.png", events[0]["output"])

	assert.Equal(t, "error", events[1]["level"])
	assert.Equal(t, "boom", events[1]["error"])
	assert.Equal(t, "Error processing in/b.txt: boom", events[1]["message"])

	assert.Equal(t, "warn", events[2]["level"])
	assert.Equal(t, "select at least one filter to process", events[2]["message"])
}
