package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

const (
	commandOutputLimit = 4000
	claudeOutputLimit  = 8000
	claudeStderrLimit  = 2000
)

// CommandOptions configure run_command and ask_claude.
type CommandOptions struct {
	CommandTimeout time.Duration
	ClaudeTimeout  time.Duration
	// Shell and Claude name the binaries; empty means "bash" and "claude".
	Shell  string
	Claude string
}

// CommandTools returns run_command and ask_claude.
func CommandTools(opts CommandOptions) []Tool {
	if opts.Shell == "" {
		opts.Shell = "bash"
	}
	if opts.Claude == "" {
		opts.Claude = "claude"
	}
	return []Tool{
		{
			Declaration: declRunCommand,
			Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
				var a struct {
					Command string `json:"command"`
				}
				if err := decodeArgs(args, &a, map[string]*string{"command": &a.Command}); err != nil {
					return nil, err
				}
				return runCommand(ctx, opts.Shell, a.Command, opts.CommandTimeout)
			},
		},
		{
			Declaration: declAskClaude,
			Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
				var a struct {
					Task string `json:"task"`
				}
				if err := decodeArgs(args, &a, map[string]*string{"task": &a.Task}); err != nil {
					return nil, err
				}
				return askClaude(ctx, opts.Claude, a.Task, opts.ClaudeTimeout)
			},
		},
	}
}

type commandResult struct {
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

func runCommand(ctx context.Context, shell, command string, timeout time.Duration) (any, error) {
	stdout, stderr, code, err := run(ctx, timeout, shell, "-c", command)
	if err != nil {
		if errors.Is(err, ErrToolTimeout) {
			return nil, fmt.Errorf("%w: command ran longer than %s", ErrToolTimeout, timeout)
		}
		return nil, fmt.Errorf("command failed to execute: %w", err)
	}
	return commandResult{
		ExitCode: code,
		Stdout:   truncate(stdout, commandOutputLimit),
		Stderr:   truncate(stderr, commandOutputLimit),
	}, nil
}

func askClaude(ctx context.Context, bin, task string, timeout time.Duration) (any, error) {
	stdout, stderr, code, err := run(ctx, timeout, bin, "-p", task, "--output-format", "text")
	if err != nil {
		if errors.Is(err, ErrToolTimeout) {
			return nil, fmt.Errorf("%w: claude ran longer than %s", ErrToolTimeout, timeout)
		}
		return nil, fmt.Errorf("failed to run claude cli: %w", err)
	}
	if code != 0 {
		return nil, fmt.Errorf("claude exited with status %d: %s", code, truncate(stderr, claudeStderrLimit))
	}
	return map[string]string{"response": truncate(stdout, claudeOutputLimit)}, nil
}

// run executes name with args. A non-zero exit is not an error; it is
// reported through code. The timeout applies on top of ctx.
func run(ctx context.Context, timeout time.Duration, name string, args ...string) (stdout, stderr []byte, code int, err error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var outBuf, errBuf bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	cmd.WaitDelay = time.Second

	err = cmd.Run()
	if ctx.Err() != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, nil, -1, ErrToolTimeout
		}
		return nil, nil, -1, ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return outBuf.Bytes(), errBuf.Bytes(), exitErr.ExitCode(), nil
	}
	if err != nil {
		return nil, nil, -1, err
	}
	return outBuf.Bytes(), errBuf.Bytes(), 0, nil
}

// truncate keeps at most n runes of b.
func truncate(b []byte, n int) string {
	s := string(b)
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
