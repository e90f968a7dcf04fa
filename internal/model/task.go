package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Request is what the operator console hands to the batch runner for one run.
type Request struct {
	InputDir  string
	OutputDir string
	Filters   FilterSelection
}

// Task represents the processing of a single source file within a batch.
type Task struct {
	ID        uuid.UUID
	BatchID   uuid.UUID
	Source    string          // path of the file to read
	OutputDir string          // directory the processed file is written to
	Filters   FilterSelection // filters to apply
}

// NewTask creates a task with a fresh ID.
func NewTask(batchID uuid.UUID, source, outputDir string, filters FilterSelection) Task {
	return Task{
		ID:        uuid.New(),
		BatchID:   batchID,
		Source:    source,
		OutputDir: outputDir,
		Filters:   filters,
	}
}

// Result is the outcome of one Task. Err is nil on success.
type Result struct {
	TaskID   uuid.UUID
	BatchID  uuid.UUID
	Source   string
	Output   string
	Err      error
	Duration time.Duration
}

// OK reports whether the task succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Message renders the result as a single log line.
func (r Result) Message() string {
	if r.OK() {
		return fmt.Sprintf("Processed image: %s", r.Output)
	}
	return fmt.Sprintf("Error processing %s: %v", r.Source, r.Err)
}

// Report gathers every result of a batch once all tasks have finished.
type Report struct {
	BatchID    uuid.UUID
	Results    []Result
	StartedAt  time.Time
	FinishedAt time.Time
}

// Succeeded returns the successful results.
func (r Report) Succeeded() []Result {
	return r.filter(true)
}

// Failed returns the failed results.
func (r Report) Failed() []Result {
	return r.filter(false)
}

func (r Report) filter(ok bool) []Result {
	out := make([]Result, 0, len(r.Results))
	for _, res := range r.Results {
		if res.OK() == ok {
			out = append(out, res)
		}
	}
	return out
}
