package task_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brickble/poweredup/internal/task"
)

func TestGoCarriesName(t *testing.T) {
	got := make(chan string, 1)
	task.Go(context.Background(), "worker", func(ctx context.Context) {
		got <- task.Name(ctx)
	})

	select {
	case name := <-got:
		assert.Equal(t, "worker", name)
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}
}

func TestNameWithoutLabel(t *testing.T) {
	require.Equal(t, "", task.Name(context.Background()))
}
