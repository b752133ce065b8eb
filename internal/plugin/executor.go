package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// DefaultTimeout bounds a single plugin invocation.
const DefaultTimeout = 5 * time.Second

// Executor runs plugin executables with a per-invocation timeout.
type Executor struct {
	timeout time.Duration
}

// NewExecutor creates an Executor. A non-positive timeout falls back to
// DefaultTimeout.
func NewExecutor(timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{timeout: timeout}
}

// Execute runs the plugin executable in its own directory, writing the
// request as JSON to stdin and parsing stdout as a Response. The process
// is killed when the timeout elapses.
func (e *Executor) Execute(p *Plugin, req *Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.Executable)
	cmd.Dir = p.Path
	cmd.Stdin = bytes.NewReader(payload)
	// Killing the direct child is not enough when it leaves grandchildren
	// holding the stdout/stderr pipes; WaitDelay makes Wait abandon the
	// pipe copies instead of blocking until every holder exits.
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("plugin %s timed out after %s", p.Manifest.Name, e.timeout)
	}
	if runErr != nil {
		if msg := stderr.String(); msg != "" {
			return nil, fmt.Errorf("plugin %s failed: %w: %s", p.Manifest.Name, runErr, msg)
		}
		return nil, fmt.Errorf("plugin %s failed: %w", p.Manifest.Name, runErr)
	}

	var resp Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("plugin %s wrote malformed response: %w", p.Manifest.Name, err)
	}
	return &resp, nil
}
