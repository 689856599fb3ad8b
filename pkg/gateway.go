package hcalreco

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Backend evaluates one batch. Row i of the output must correspond to row i
// of the input, whatever the execution discipline wrapping it.
type Backend interface {
	Run(input []float32, rows int) ([]float32, error)
}

// InferenceHandle is the pending result of one submitted batch.
type InferenceHandle interface {
	Result(ctx context.Context) ([]float32, error)
}

// InferenceClient accepts one batch per cycle and exposes the tensor shape
// the batch builder must respect.
type InferenceClient interface {
	BatchCapacity() int
	RowWidth() int
	OutputWidth() int
	Submit(ctx context.Context, input []float32, rows int) (InferenceHandle, error)
}

// ClientConfig fixes the tensor shape for the lifetime of a client.
type ClientConfig struct {
	BatchCapacity int
	RowWidth      int
	OutputWidth   int
	PollInterval  time.Duration
}

type clientShape struct {
	cfg ClientConfig
}

func (c clientShape) BatchCapacity() int { return c.cfg.BatchCapacity }
func (c clientShape) RowWidth() int      { return c.cfg.RowWidth }
func (c clientShape) OutputWidth() int   { return c.cfg.OutputWidth }

// readyHandle holds an already computed result.
type readyHandle struct {
	output []float32
}

func (h readyHandle) Result(ctx context.Context) ([]float32, error) {
	return h.output, nil
}

// SyncClient blocks in Submit until the backend has evaluated the batch.
type SyncClient struct {
	clientShape
	backend Backend
}

func NewSyncClient(cfg ClientConfig, backend Backend) *SyncClient {
	return &SyncClient{clientShape{cfg}, backend}
}

func (c *SyncClient) Submit(ctx context.Context, input []float32, rows int) (InferenceHandle, error) {
	output, err := c.backend.Run(input, rows)
	if err != nil {
		return nil, &ErrInference{Op: "submit", Err: err}
	}
	return readyHandle{output: output}, nil
}

type asyncResult struct {
	output []float32
	err    error
}

type asyncHandle struct {
	ch chan asyncResult
}

func (h *asyncHandle) Result(ctx context.Context) ([]float32, error) {
	select {
	case <-ctx.Done():
		return nil, &ErrInference{Op: "result", Err: ctx.Err()}
	case res := <-h.ch:
		if res.err != nil {
			return nil, &ErrInference{Op: "result", Err: res.err}
		}
		return res.output, nil
	}
}

// AsyncClient returns immediately from Submit; the evaluation completes on
// its own goroutine and is delivered through the handle.
type AsyncClient struct {
	clientShape
	backend Backend
}

func NewAsyncClient(cfg ClientConfig, backend Backend) *AsyncClient {
	return &AsyncClient{clientShape{cfg}, backend}
}

func (c *AsyncClient) Submit(ctx context.Context, input []float32, rows int) (InferenceHandle, error) {
	handle := &asyncHandle{ch: make(chan asyncResult, 1)}
	go func() {
		output, err := c.backend.Run(input, rows)
		handle.ch <- asyncResult{output: output, err: err}
	}()
	return handle, nil
}

type pollingHandle struct {
	interval time.Duration

	mu     sync.Mutex
	done   bool
	output []float32
	err    error
}

func (h *pollingHandle) ready() ([]float32, error, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.output, h.err, h.done
}

func (h *pollingHandle) Result(ctx context.Context) ([]float32, error) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		if output, err, done := h.ready(); done {
			if err != nil {
				return nil, &ErrInference{Op: "result", Err: err}
			}
			return output, nil
		}
		select {
		case <-ctx.Done():
			return nil, &ErrInference{Op: "result", Err: ctx.Err()}
		case <-ticker.C:
		}
	}
}

// PollingClient returns immediately from Submit; the handle retrieves the
// result by periodic readiness checks.
type PollingClient struct {
	clientShape
	backend Backend
}

func NewPollingClient(cfg ClientConfig, backend Backend) *PollingClient {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Millisecond
	}
	return &PollingClient{clientShape{cfg}, backend}
}

func (c *PollingClient) Submit(ctx context.Context, input []float32, rows int) (InferenceHandle, error) {
	handle := &pollingHandle{interval: c.cfg.PollInterval}
	go func() {
		output, err := c.backend.Run(input, rows)
		handle.mu.Lock()
		handle.output = output
		handle.err = err
		handle.done = true
		handle.mu.Unlock()
	}()
	return handle, nil
}

// LocalBackend is a deterministic in-process model used for runs without a
// remote inference server. Per row it emits the summed window charge, the
// charge-weighted mean time slice and a zero quality flag.
type LocalBackend struct {
	RowWidth    int
	OutputWidth int
	NumCycles   int
}

func (b LocalBackend) Run(input []float32, rows int) ([]float32, error) {
	if b.RowWidth < minRowWidth || b.OutputWidth < 1 {
		return nil, fmt.Errorf("invalid local backend shape %dx%d", b.RowWidth, b.OutputWidth)
	}
	output := make([]float32, rows*b.OutputWidth)
	for row := 0; row < rows; row++ {
		base := row * b.RowWidth
		var sumQ, sumQT float32
		for ts := 0; ts < b.NumCycles; ts++ {
			q := input[base+slotCharge+ts]
			sumQ += q
			sumQT += q * float32(ts)
		}
		out := row * b.OutputWidth
		output[out] = sumQ
		if b.OutputWidth > 1 && sumQ != 0 {
			output[out+1] = sumQT / sumQ
		}
	}
	return output, nil
}
