package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-batch/internal/config"
	"github.com/aliskhannn/image-batch/internal/infra/kafka/producer"
	"github.com/aliskhannn/image-batch/internal/model"
	"github.com/aliskhannn/image-batch/internal/preview"
	"github.com/aliskhannn/image-batch/internal/processor"
	resultrepo "github.com/aliskhannn/image-batch/internal/repository/result"
	"github.com/aliskhannn/image-batch/internal/service/batch"
	"github.com/aliskhannn/image-batch/internal/sink"
	"github.com/aliskhannn/image-batch/internal/storage/file"
	"github.com/aliskhannn/image-batch/internal/storage/object"
)

const (
	exitOK           = 0
	exitFailure      = 1
	exitPrecondition = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	// Context & signals: used to stop recorder I/O on system interrupts.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize logger and load application configuration.
	zlog.Init()

	flags := pflag.NewFlagSet("image-batch", pflag.ExitOnError)
	config.RegisterFlags(flags)
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.Load(flags)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to load config")
		return exitFailure
	}

	logSink := newSink(cfg.Log, os.Stdout, os.Stderr)

	req, err := batchRequest(cfg.Batch, logSink)
	if err != nil {
		return exitPrecondition
	}

	// Retry strategy for the mirror and Kafka.
	strategy := retry.Strategy{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay,
		Backoff:  cfg.Retry.Backoff,
	}

	storage := file.NewStorage(afero.NewOsFs())
	imageProcessor := processor.New(storage)

	recorders, cleanup, err := setupRecorders(ctx, cfg, storage, strategy)
	defer cleanup()
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to set up result recorders")
		return exitFailure
	}

	service := batch.NewService(imageProcessor, storage, logSink,
		batch.WithWorkers(cfg.Batch.Workers),
		batch.WithRecorders(recorders...),
	)

	report, err := service.Run(ctx, req)
	if err != nil {
		var pe *batch.PreconditionError
		if errors.As(err, &pe) {
			return exitPrecondition
		}
		zlog.Logger.Error().Err(err).Msg("batch did not run")
		return exitFailure
	}

	// Optional contact sheet of everything that was written.
	if cfg.Preview.Path != "" {
		sheet := preview.New(storage, preview.Options{
			Columns:  cfg.Preview.Columns,
			CellSize: cfg.Preview.CellSize,
			FontPath: cfg.Preview.FontPath,
		})
		if err := sheet.Save(ctx, report.Results, cfg.Preview.Path); err != nil {
			zlog.Logger.Warn().Err(err).Msg("failed to write contact sheet")
		} else {
			zlog.Logger.Info().Str("path", cfg.Preview.Path).Msg("contact sheet written")
		}
	}

	return exitOK
}

// newSink builds the per-task sink. In plain mode zlog moves to stderr so stdout carries only sink lines.
func newSink(cfg config.Log, stdout, stderr io.Writer) batch.Sink {
	if cfg.Plain {
		zlog.Logger = zlog.Logger.Output(stderr)
		return sink.NewText(stdout)
	}

	return sink.NewLogger(zlog.Logger.With().Logger())
}

// batchRequest builds the runner request; an invalid filter name is reported to the sink.
func batchRequest(cfg config.Batch, s batch.Sink) (model.Request, error) {
	req, err := cfg.Request()
	if err != nil {
		s.Diagnostic(err.Error())
		return model.Request{}, err
	}

	return req, nil
}

// setupRecorders connects the optional result recorders enabled in cfg.
// The returned cleanup closes every client that was opened, even when an error is returned.
func setupRecorders(
	ctx context.Context,
	cfg *config.Config,
	storage *file.Storage,
	strategy retry.Strategy,
) ([]batch.Recorder, func(), error) {
	var (
		recorders []batch.Recorder
		closers   []func()
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// Mirror processed files into object storage (MinIO).
	if cfg.Storage.Enabled() {
		mirror, err := object.NewStorage(ctx,
			cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.BucketName, cfg.Storage.UseSSL,
			storage, strategy,
		)
		if err != nil {
			return nil, cleanup, err
		}
		recorders = append(recorders, mirror)
	}

	// Publish one event per result to Kafka.
	if cfg.Kafka.Enabled() {
		p := producer.New(&cfg.Kafka, strategy)
		closers = append(closers, func() {
			if err := p.Client.Close(); err != nil {
				zlog.Logger.Error().Err(err).Msg("failed to close kafka producer client")
			}
		})
		recorders = append(recorders, p)
	}

	// Journal results in PostgreSQL (master and slaves).
	if cfg.Database.Enabled() {
		opts := &dbpg.Options{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		}

		slaveDSNs := make([]string, 0, len(cfg.Database.Slaves))
		for _, s := range cfg.Database.Slaves {
			slaveDSNs = append(slaveDSNs, s.DSN())
		}

		db, err := dbpg.New(cfg.Database.Master.DSN(), slaveDSNs, opts)
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to connect to database: %w", err)
		}
		closers = append(closers, func() {
			if err := db.Master.Close(); err != nil {
				zlog.Logger.Printf("failed to close master DB: %v", err)
			}
			for i, s := range db.Slaves {
				if err := s.Close(); err != nil {
					zlog.Logger.Printf("failed to close slave DB %d: %v", i, err)
				}
			}
		})
		recorders = append(recorders, resultrepo.NewRepository(db))
	}

	return recorders, cleanup, nil
}
