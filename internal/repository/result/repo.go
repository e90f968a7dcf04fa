package result

import (
	"context"
	"fmt"

	"github.com/wb-go/wbf/dbpg"

	"github.com/aliskhannn/image-batch/internal/model"
)

// Repository journals task results into the database.
type Repository struct {
	db *dbpg.DB
}

// NewRepository creates a new Repository with the given DB connection.
func NewRepository(db *dbpg.DB) *Repository {
	return &Repository{db: db}
}

// Status returns the journal status of a result.
func Status(res model.Result) string {
	if res.OK() {
		return "processed"
	}
	return "failed"
}

// Record inserts one row for the result.
func (r *Repository) Record(ctx context.Context, res model.Result) error {
	query := `
		INSERT INTO processing_results (task_id, batch_id, source, output, status, error, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
    `

	var errText *string
	if !res.OK() {
		msg := res.Err.Error()
		errText = &msg
	}

	_, err := r.db.ExecContext(
		ctx, query,
		res.TaskID, res.BatchID, res.Source, res.Output, Status(res), errText, res.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record: failed to save result: %w", err)
	}

	return nil
}
