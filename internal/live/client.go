// Package live implements a client for the Gemini Live bidirectional
// streaming API.
//
// A [Session] owns one WebSocket connection. Writes and reads run as two
// independent halves under an errgroup: outbound commands are pushed onto an
// unbounded queue and never block the caller, inbound messages are decoded
// into [Event] values and delivered in arrival order on [Session.Events].
// When either half ends, the other is cancelled and exactly one terminal
// event ([Closed] or [Error]) is delivered before the channel closes.
package live

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/coder/websocket"
)

const (
	defaultBaseURL = "wss://generativelanguage.googleapis.com/ws"
	endpointPath   = "/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	// DefaultModel is the native-audio Live model.
	DefaultModel = "models/gemini-2.5-flash-native-audio-preview-12-2025"
	// DefaultVoice is the prebuilt voice used when none is configured.
	DefaultVoice = "Kore"
	// DefaultInstruction is the system instruction used when none is configured.
	DefaultInstruction = "You are a helpful voice assistant. Keep responses concise and conversational."

	// maxMessageSize bounds a single inbound frame; audio turns can be large.
	maxMessageSize = 64 << 20
)

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL overrides the WebSocket base URL. Tests point it at a local server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithModel sets the model name. A missing "models/" prefix is added.
func WithModel(model string) Option {
	return func(c *Client) {
		if model == "" {
			return
		}
		if !strings.HasPrefix(model, "models/") {
			model = "models/" + model
		}
		c.model = model
	}
}

// WithHTTPClient sets the HTTP client used for the WebSocket handshake.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// Client creates live sessions. It holds no connection itself and is safe for
// concurrent use.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	log        *slog.Logger
}

// New returns a Client authenticating with apiKey.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   DefaultModel,
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Config is the per-session setup.
type Config struct {
	Voice             string
	SystemInstruction string
	Tools             []FunctionDeclaration
}

// Connect dials the service and sends the setup message. It returns as soon
// as setup is written; [Ready] arrives on the event channel once the service
// acknowledges it. ctx bounds only the handshake.
func (c *Client) Connect(ctx context.Context, cfg Config) (*Session, error) {
	endpoint := c.baseURL + endpointPath + "?key=" + url.QueryEscape(c.apiKey)

	conn, _, err := websocket.Dial(ctx, endpoint, &websocket.DialOptions{
		HTTPClient: c.httpClient,
	})
	if err != nil {
		return nil, &ConnectError{Op: "dial", Err: err}
	}
	conn.SetReadLimit(maxMessageSize)

	data, err := json.Marshal(c.setupMessage(cfg))
	if err != nil {
		conn.CloseNow()
		return nil, &ConnectError{Op: "encode setup", Err: err}
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		conn.Close(websocket.StatusInternalError, "setup failed")
		return nil, &ConnectError{Op: "send setup", Err: err}
	}

	s := newSession(conn, c.log)
	s.log.Info("live session connecting", "model", c.model, "voice", voiceOrDefault(cfg.Voice))
	s.start()
	return s, nil
}

func (c *Client) setupMessage(cfg Config) setupMessage {
	instruction := cfg.SystemInstruction
	if instruction == "" {
		instruction = DefaultInstruction
	}
	msg := setupMessage{
		Setup: setupConfig{
			Model: c.model,
			GenerationConfig: generationConfig{
				ResponseModalities: []string{"AUDIO"},
				SpeechConfig: speechConfig{
					VoiceConfig: voiceConfig{
						PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: voiceOrDefault(cfg.Voice)},
					},
				},
			},
			SystemInstruction: systemInstruction{Parts: []part{{Text: instruction}}},
		},
	}
	if len(cfg.Tools) > 0 {
		msg.Setup.Tools = []toolSet{{FunctionDeclarations: cfg.Tools}}
	}
	return msg
}

func voiceOrDefault(v string) string {
	if v == "" {
		return DefaultVoice
	}
	return v
}

// String implements fmt.Stringer without leaking the key.
func (c *Client) String() string {
	return fmt.Sprintf("live.Client{model=%s, base=%s}", c.model, c.baseURL)
}
