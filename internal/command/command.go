// Package command runs external tools and streams their output.
package command

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// tailLines bounds how much output is kept for error messages.
const tailLines = 8

// Command is one external tool invocation.
type Command struct {
	Binary string
	Args   []string
	// Dir is the working directory; empty means the current one.
	Dir string
}

// String renders the invocation for logs.
func (c Command) String() string {
	return strings.TrimSpace(c.Binary + " " + strings.Join(c.Args, " "))
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, cmd Command, onLine func(string)) error
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, cmd Command, onLine func(string)) error

func (f ExecutorFunc) Run(ctx context.Context, cmd Command, onLine func(string)) error {
	return f(ctx, cmd, onLine)
}

// OSExecutor runs commands with os/exec.
type OSExecutor struct{}

// Run starts cmd and forwards every stdout and stderr line to onLine. On
// failure the error carries the last few output lines.
func (OSExecutor) Run(ctx context.Context, c Command, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, c.Binary, c.Args...) //nolint:gosec
	cmd.Dir = c.Dir
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", c.Binary, err)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		tail    []string
		scanErr error
		once    sync.Once
	)
	forward := func(line string) {
		mu.Lock()
		tail = append(tail, line)
		if len(tail) > tailLines {
			tail = tail[len(tail)-tailLines:]
		}
		if onLine != nil {
			onLine(line)
		}
		mu.Unlock()
	}
	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			forward(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() { scanErr = err })
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)
	wg.Wait()

	if scanErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("scan output: %w", scanErr)
	}
	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", c.Binary, ctxErr)
		}
		if len(tail) > 0 {
			return fmt.Errorf("%s: %w: %s", c.Binary, err, strings.Join(tail, " | "))
		}
		return fmt.Errorf("%s: %w", c.Binary, err)
	}
	return nil
}
