// Package tools implements the functions the live assistant may call.
//
// Every result is a JSON object. Failures are reported in-band as
// {"error": "..."} so the model can read them; Execute never returns a Go
// error.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"mavoice/internal/live"
)

// ErrToolTimeout is reported when a tool exceeds its deadline.
var ErrToolTimeout = errors.New("tool timed out")

// Handler runs one tool. args is the raw JSON object sent by the model. The
// returned value is marshalled as the function response.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// Tool pairs a declaration with its handler.
type Tool struct {
	Declaration live.FunctionDeclaration
	Handler     Handler
}

// Executor dispatches calls by name. It is safe for concurrent use.
type Executor struct {
	mu    sync.RWMutex
	tools map[string]Tool
	log   *slog.Logger
}

// NewExecutor returns an empty Executor.
func NewExecutor(log *slog.Logger) *Executor {
	if log == nil {
		log = slog.Default()
	}
	return &Executor{tools: make(map[string]Tool), log: log}
}

// Register adds or replaces a tool.
func (e *Executor) Register(t Tool) error {
	if t.Declaration.Name == "" {
		return fmt.Errorf("tools: tool must have a non-empty name")
	}
	if t.Handler == nil {
		return fmt.Errorf("tools: tool %q must have a non-nil handler", t.Declaration.Name)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tools[t.Declaration.Name] = t
	return nil
}

// Declarations lists the registered tools sorted by name.
func (e *Executor) Declarations() []live.FunctionDeclaration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]live.FunctionDeclaration, 0, len(e.tools))
	for _, t := range e.tools {
		out = append(out, t.Declaration)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Execute runs the named tool and returns its JSON result.
func (e *Executor) Execute(ctx context.Context, name string, args json.RawMessage) json.RawMessage {
	e.mu.RLock()
	t, ok := e.tools[name]
	e.mu.RUnlock()
	if !ok {
		e.log.Warn("unknown tool requested", "tool", name)
		return errorResult(fmt.Sprintf("Unknown tool: %s", name))
	}
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	start := time.Now()
	res, err := t.Handler(ctx, args)
	log := e.log.With("tool", name, "took", time.Since(start).Round(time.Millisecond))
	if err != nil {
		if !errors.Is(err, ErrToolTimeout) && timedOut(ctx, err) {
			err = fmt.Errorf("%w after %s", ErrToolTimeout, time.Since(start).Round(time.Millisecond))
		}
		log.Warn("tool failed", "err", err)
		return errorResult(err.Error())
	}

	data, err := json.Marshal(res)
	if err != nil {
		log.Error("tool result not encodable", "err", err)
		return errorResult(fmt.Sprintf("encode result: %v", err))
	}
	log.Debug("tool done", "bytes", len(data))
	return data
}

func timedOut(ctx context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
}

func errorResult(msg string) json.RawMessage {
	data, _ := json.Marshal(map[string]string{"error": msg})
	return data
}

// decodeArgs unmarshals args into v. Missing required string fields are
// reported by name.
func decodeArgs(args json.RawMessage, v any, required map[string]*string) error {
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	names := make([]string, 0, len(required))
	for n := range required {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if *required[n] == "" {
			return fmt.Errorf("missing '%s' parameter", n)
		}
	}
	return nil
}

func stringParam(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func objectSchema(props map[string]any, required ...string) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// Setup builds an Executor with the memory and command tools. The returned
// close function releases the memory database.
func Setup(ctx context.Context, memoryDB string, cmd CommandOptions, log *slog.Logger) (*Executor, func() error, error) {
	store, err := OpenMemory(ctx, memoryDB)
	if err != nil {
		return nil, nil, err
	}
	e := NewExecutor(log)
	for _, t := range append(MemoryTools(store), CommandTools(cmd)...) {
		if err := e.Register(t); err != nil {
			store.Close()
			return nil, nil, err
		}
	}
	return e, store.Close, nil
}
