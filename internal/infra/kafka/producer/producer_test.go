package producer

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/aliskhannn/image-batch/internal/model"
)

func TestNewEvent_Processed(t *testing.T) {
	res := model.Result{
		TaskID:   uuid.New(),
		BatchID:  uuid.New(),
		Source:   "in/a.png",
		Output:   "out/processed_a.png",
		Duration: 1500 * time.Millisecond,
	}

	e := NewEvent(res)

	assert.Equal(t, res.TaskID.String(), e.TaskID)
	assert.Equal(t, res.BatchID.String(), e.BatchID)
	assert.Equal(t, "processed", e.Status)
	assert.Equal(t, "out/processed_a.png", e.Output)
	assert.Empty(t, e.Error)
	assert.Equal(t, int64(1500), e.DurationMS)
}

func TestNewEvent_Failed(t *testing.T) {
	e := NewEvent(model.Result{Source: "in/b.txt", Err: errors.New("image: unknown format")})

	assert.Equal(t, "failed", e.Status)
	assert.Equal(t, "image: unknown format", e.Error)
	assert.Empty(t, e.Output)
}
