package syssched

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/open-control-systems/discovery-hub/components/status"
)

type testAsyncTaskRunnerTask struct {
	mu        sync.Mutex
	err       error
	callCount int
}

func (t *testAsyncTaskRunnerTask) Run() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.callCount++

	return t.err
}

func (t *testAsyncTaskRunnerTask) getCallCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.callCount
}

type testAsyncTaskRunnerErrorHandler struct {
	mu   sync.Mutex
	errs []error
}

func (h *testAsyncTaskRunnerErrorHandler) HandleError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.errs = append(h.errs, err)
}

func (h *testAsyncTaskRunnerErrorHandler) errCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.errs)
}

func TestAsyncTaskRunnerRunPeriodically(t *testing.T) {
	task := &testAsyncTaskRunnerTask{}

	ctx, cancel := context.WithCancel(context.Background())

	runner := NewAsyncTaskRunner(ctx, task, nil, time.Millisecond*10)
	runner.Start()

	for task.getCallCount() < 3 {
		time.Sleep(time.Millisecond * 10)
	}

	cancel()
	require.Nil(t, runner.Close())
}

func TestAsyncTaskRunnerCloseWithoutStart(t *testing.T) {
	task := &testAsyncTaskRunnerTask{}

	runner := NewAsyncTaskRunner(context.Background(), task, nil, time.Millisecond*10)

	closedCh := make(chan error, 1)

	go func() {
		closedCh <- runner.Close()
	}()

	select {
	case err := <-closedCh:
		require.Nil(t, err)

	case <-time.After(time.Second * 2):
		t.Fatal("Close() didn't finish in time")
	}

	require.Equal(t, 0, task.getCallCount())
}

func TestAsyncTaskRunnerHandleError(t *testing.T) {
	task := &testAsyncTaskRunnerTask{
		err: status.StatusError,
	}
	handler := &testAsyncTaskRunnerErrorHandler{}

	ctx, cancel := context.WithCancel(context.Background())

	runner := NewAsyncTaskRunner(ctx, task, handler, time.Millisecond*10)
	runner.Start()

	for handler.errCount() < 2 {
		time.Sleep(time.Millisecond * 10)
	}

	cancel()
	require.Nil(t, runner.Close())
}
