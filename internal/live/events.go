package live

import "encoding/json"

// Event is one inbound occurrence on a live session. The concrete types below
// form a closed set.
type Event interface {
	isEvent()
}

// Ready reports that the service acknowledged the setup message.
type Ready struct{}

// Audio carries decoded PCM (s16le, 24 kHz mono) from the model.
type Audio struct {
	PCM []byte
}

// Text carries a text part of the model's turn.
type Text struct {
	Text string
}

// Interrupted reports that the service detected the user talking over the
// current response.
type Interrupted struct{}

// TurnComplete reports the end of the model's turn.
type TurnComplete struct{}

// ToolCall asks the client to run one or more functions.
type ToolCall struct {
	Calls []FunctionCall
}

// FunctionCall is a single function invocation requested by the model.
type FunctionCall struct {
	ID   string
	Name string
	Args json.RawMessage
}

// ToolCallCancellation withdraws previously issued calls.
type ToolCallCancellation struct {
	IDs []string
}

// Error is a terminal transport failure. No further events follow it.
type Error struct {
	Err error
}

// Message returns the failure text.
func (e Error) Message() string {
	if e.Err == nil {
		return "unknown error"
	}
	return e.Err.Error()
}

// Closed is the terminal event for an orderly close.
type Closed struct {
	Reason string
}

func (Ready) isEvent()                {}
func (Audio) isEvent()                {}
func (Text) isEvent()                 {}
func (Interrupted) isEvent()          {}
func (TurnComplete) isEvent()         {}
func (ToolCall) isEvent()             {}
func (ToolCallCancellation) isEvent() {}
func (Error) isEvent()                {}
func (Closed) isEvent()               {}
