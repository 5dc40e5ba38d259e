package live

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// audioMIMEType is the format of every outbound audio chunk.
const audioMIMEType = "audio/pcm;rate=16000"

// ── Outgoing ──────────────────────────────────────────────────────────────────

type setupMessage struct {
	Setup setupConfig `json:"setup"`
}

type setupConfig struct {
	Model             string            `json:"model"`
	GenerationConfig  generationConfig  `json:"generationConfig"`
	SystemInstruction systemInstruction `json:"systemInstruction"`
	Tools             []toolSet         `json:"tools,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string     `json:"responseModalities"`
	SpeechConfig       speechConfig `json:"speechConfig"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type systemInstruction struct {
	Parts []part `json:"parts"`
}

type toolSet struct {
	FunctionDeclarations []FunctionDeclaration `json:"functionDeclarations"`
}

// FunctionDeclaration describes a tool the model may call.
type FunctionDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type realtimeInputMessage struct {
	RealtimeInput realtimeInput `json:"realtimeInput"`
}

type realtimeInput struct {
	Audio         *blob     `json:"audio,omitempty"`
	ActivityStart *struct{} `json:"activityStart,omitempty"`
	ActivityEnd   *struct{} `json:"activityEnd,omitempty"`
}

type blob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type clientContentMessage struct {
	ClientContent clientContent `json:"clientContent"`
}

type clientContent struct {
	Turns        []contentTurn `json:"turns"`
	TurnComplete bool          `json:"turnComplete"`
}

type contentTurn struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type toolResponseMessage struct {
	ToolResponse toolResponse `json:"toolResponse"`
}

type toolResponse struct {
	FunctionResponses []functionResponse `json:"functionResponses"`
}

type functionResponse struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Response json.RawMessage `json:"response"`
}

// objectResponse returns raw when it is a JSON object and wraps it as
// {"output": raw} otherwise. Invalid JSON is wrapped as a string.
func objectResponse(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' && json.Valid(trimmed) {
		return trimmed
	}
	var value any = json.RawMessage(trimmed)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		value = string(raw)
	}
	wrapped, err := json.Marshal(map[string]any{"output": value})
	if err != nil {
		return json.RawMessage(`{"output":null}`)
	}
	return wrapped
}

// ── Incoming ──────────────────────────────────────────────────────────────────

type serverMessage struct {
	SetupComplete        *json.RawMessage      `json:"setupComplete,omitempty"`
	GoAway               *goAway               `json:"goAway,omitempty"`
	ToolCall             *toolCallMsg          `json:"toolCall,omitempty"`
	ToolCallCancellation *toolCallCancellation `json:"toolCallCancellation,omitempty"`
	ServerContent        *serverContent        `json:"serverContent,omitempty"`
	Error                *serverError          `json:"error,omitempty"`
}

type goAway struct {
	TimeLeft string `json:"timeLeft"`
}

type toolCallMsg struct {
	FunctionCalls []functionCall `json:"functionCalls"`
}

type functionCall struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

type toolCallCancellation struct {
	IDs []string `json:"ids"`
}

type serverContent struct {
	ModelTurn           *modelTurn     `json:"modelTurn,omitempty"`
	TurnComplete        bool           `json:"turnComplete,omitempty"`
	Interrupted         bool           `json:"interrupted,omitempty"`
	InputTranscription  *transcription `json:"inputTranscription,omitempty"`
	OutputTranscription *transcription `json:"outputTranscription,omitempty"`
}

type modelTurn struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string `json:"text,omitempty"`
	InlineData *blob  `json:"inlineData,omitempty"`
}

type transcription struct {
	Text string `json:"text"`
}

type serverError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

var errNotObject = errors.New("top-level value is not an object")

// decodeServerMessage parses one wire message. Anything that is not a JSON
// object yields a *ProtocolError.
func decodeServerMessage(data []byte) (*serverMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &ProtocolError{Size: len(data), Err: errNotObject}
	}
	var msg serverMessage
	if err := json.Unmarshal(trimmed, &msg); err != nil {
		return nil, &ProtocolError{Size: len(data), Err: err}
	}
	return &msg, nil
}

// events maps the recognised keys of msg onto events, in a fixed order:
// setup acknowledgement, tool calls, cancellations, then content. Within
// content an interruption comes first, then parts in wire order, then the
// turn-complete marker. Parts whose audio is not valid base64 are skipped and
// reported through the returned error.
func (m *serverMessage) events() ([]Event, error) {
	var (
		out  []Event
		errs []error
	)

	if m.SetupComplete != nil {
		out = append(out, Ready{})
	}

	if m.ToolCall != nil && len(m.ToolCall.FunctionCalls) > 0 {
		calls := make([]FunctionCall, 0, len(m.ToolCall.FunctionCalls))
		for _, fc := range m.ToolCall.FunctionCalls {
			args := fc.Args
			if len(args) == 0 || string(args) == "null" {
				args = json.RawMessage(`{}`)
			}
			calls = append(calls, FunctionCall{ID: fc.ID, Name: fc.Name, Args: args})
		}
		out = append(out, ToolCall{Calls: calls})
	}

	if m.ToolCallCancellation != nil {
		out = append(out, ToolCallCancellation{IDs: m.ToolCallCancellation.IDs})
	}

	if sc := m.ServerContent; sc != nil {
		if sc.Interrupted {
			out = append(out, Interrupted{})
		}
		if sc.ModelTurn != nil {
			for i, p := range sc.ModelTurn.Parts {
				if p.InlineData != nil && p.InlineData.Data != "" {
					pcm, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
					if err != nil {
						errs = append(errs, fmt.Errorf("part %d: %w", i, err))
					} else if len(pcm) > 0 {
						out = append(out, Audio{PCM: pcm})
					}
				}
				if p.Text != "" {
					out = append(out, Text{Text: p.Text})
				}
			}
		}
		if sc.TurnComplete {
			out = append(out, TurnComplete{})
		}
	}

	return out, errors.Join(errs...)
}
