package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-batch/internal/model"
)

// PreconditionError is reported when a batch cannot start. Its message is shown to the operator as is.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return e.Reason
}

var (
	ErrNoFilters = &PreconditionError{Reason: "select at least one filter to process"}
	ErrNoFolders = &PreconditionError{Reason: "select input and output folders"}
)

// processor runs a single task and returns the path of the written file.
type processor interface {
	Process(ctx context.Context, task model.Task) (string, error)
}

// lister takes the snapshot of the input directory.
type lister interface {
	List(ctx context.Context, dir string) ([]string, error)
}

// Sink receives one message per task and the precondition diagnostics.
// It must accept concurrent calls.
type Sink interface {
	Report(res model.Result)
	Diagnostic(msg string)
}

// Recorder is notified of every task result after it has been reported.
// Implementations must be safe for concurrent use.
type Recorder interface {
	Record(ctx context.Context, res model.Result) error
}

// Option configures a Service.
type Option func(*Service)

// WithWorkers caps the number of tasks running at once. Zero or less means one goroutine per file.
func WithWorkers(n int) Option {
	return func(s *Service) {
		s.workers = n
	}
}

// WithRecorders adds recorders that receive every task result.
func WithRecorders(r ...Recorder) Option {
	return func(s *Service) {
		s.recorders = append(s.recorders, r...)
	}
}

// Service runs filter batches over the files of an input directory.
type Service struct {
	processor processor
	lister    lister
	sink      Sink
	recorders []Recorder
	workers   int
}

// NewService creates a new Service.
func NewService(p processor, l lister, s Sink, opts ...Option) *Service {
	svc := &Service{processor: p, lister: l, sink: s}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Validate checks that a batch can start: at least one filter and both folders must be given.
// Filters are checked first.
func Validate(req model.Request) error {
	if req.Filters.Empty() {
		return ErrNoFilters
	}
	if req.InputDir == "" || req.OutputDir == "" {
		return ErrNoFolders
	}
	return nil
}

// Run processes every entry of req.InputDir concurrently and waits for all of them.
//
// A failed precondition is reported to the sink and returned before the filesystem is touched.
// Individual file failures are reported and collected in the Report; they never fail the batch.
// Started tasks are not cancelled: ctx only bounds recorder I/O.
func (s *Service) Run(ctx context.Context, req model.Request) (model.Report, error) {
	if err := Validate(req); err != nil {
		s.sink.Diagnostic(err.Error())
		return model.Report{}, err
	}

	report := model.Report{
		BatchID:   uuid.New(),
		StartedAt: time.Now(),
	}

	// Snapshot the directory once; files appearing later are not picked up.
	sources, err := s.lister.List(ctx, req.InputDir)
	if err != nil {
		s.sink.Diagnostic(err.Error())
		return report, fmt.Errorf("list input directory: %w", err)
	}

	zlog.Logger.Info().
		Str("batch_id", report.BatchID.String()).
		Str("input", req.InputDir).
		Str("output", req.OutputDir).
		Str("filters", req.Filters.String()).
		Int("files", len(sources)).
		Msg("starting batch")

	p := pool.NewWithResults[model.Result]()
	if s.workers > 0 {
		p = p.WithMaxGoroutines(s.workers)
	}

	for _, src := range sources {
		task := model.NewTask(report.BatchID, src, req.OutputDir, req.Filters)
		p.Go(func() model.Result {
			return s.handle(ctx, task)
		})
	}

	report.Results = p.Wait()
	report.FinishedAt = time.Now()

	zlog.Logger.Info().
		Str("batch_id", report.BatchID.String()).
		Int("processed", len(report.Succeeded())).
		Int("failed", len(report.Failed())).
		Dur("took", report.FinishedAt.Sub(report.StartedAt)).
		Msg("batch finished")

	return report, nil
}

// handle runs one task to completion. Errors and panics stay local to the task.
func (s *Service) handle(ctx context.Context, task model.Task) model.Result {
	start := time.Now()
	res := model.Result{
		TaskID:  task.ID,
		BatchID: task.BatchID,
		Source:  task.Source,
	}

	var (
		output string
		err    error
	)
	if r := panics.Try(func() {
		output, err = s.processor.Process(ctx, task)
	}); r != nil {
		zlog.Logger.Error().
			Str("source", task.Source).
			Str("stack", string(r.Stack)).
			Msg("recovered panic in task")
		err = fmt.Errorf("panic while processing: %v", r.Value)
	}

	res.Output = output
	res.Err = err
	res.Duration = time.Since(start)

	s.sink.Report(res)

	for _, rec := range s.recorders {
		if err := rec.Record(ctx, res); err != nil {
			zlog.Logger.Warn().
				Err(err).
				Str("task_id", res.TaskID.String()).
				Str("source", res.Source).
				Msg("failed to record result")
		}
	}

	return res
}
