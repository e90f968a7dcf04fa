package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"

	"github.com/aliskhannn/image-batch/internal/config"
	"github.com/aliskhannn/image-batch/internal/model"
)

// Event is the message published for every processed file.
type Event struct {
	TaskID     string `json:"task_id"`
	BatchID    string `json:"batch_id"`
	Source     string `json:"source"`
	Output     string `json:"output,omitempty"`
	Status     string `json:"status"` // processed / failed
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// NewEvent converts a task result into its event.
func NewEvent(res model.Result) Event {
	e := Event{
		TaskID:     res.TaskID.String(),
		BatchID:    res.BatchID.String(),
		Source:     res.Source,
		Output:     res.Output,
		Status:     "processed",
		DurationMS: res.Duration.Milliseconds(),
	}
	if !res.OK() {
		e.Status = "failed"
		e.Error = res.Err.Error()
	}
	return e
}

// Producer represents a Kafka producer.
type Producer struct {
	Client   *wbfkafka.Producer
	strategy retry.Strategy
	cfg      *config.Kafka
}

// New creates a new Producer.
// - cfg: Kafka configuration struct
// - s: retry strategy
func New(
	cfg *config.Kafka,
	s retry.Strategy,
) *Producer {
	producer := wbfkafka.NewProducer(cfg.Brokers, cfg.Topic)

	return &Producer{
		Client:   producer,
		cfg:      cfg,
		strategy: s,
	}
}

// Record serializes the result event to JSON and sends it to Kafka.
// The task ID is used as the message key.
func (p *Producer) Record(ctx context.Context, res model.Result) error {
	data, err := json.Marshal(NewEvent(res))
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	key := []byte(res.TaskID.String())

	// Bound the send so a dead broker cannot hold the batch open.
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err = p.Client.SendWithRetry(ctx, p.strategy, key, data); err != nil {
		return fmt.Errorf("failed to send event: %w", err)
	}

	return nil
}
