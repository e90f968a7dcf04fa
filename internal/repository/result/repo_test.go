package result

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aliskhannn/image-batch/internal/model"
)

func TestStatus(t *testing.T) {
	assert.Equal(t, "processed", Status(model.Result{Output: "out/processed_a.png"}))
	assert.Equal(t, "failed", Status(model.Result{Err: errors.New("boom")}))
}
