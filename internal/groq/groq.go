// Package groq transcribes recorded speech through Groq's OpenAI-compatible
// audio API.
package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"mavoice/internal/audio"
)

// DefaultBaseURL is Groq's OpenAI-compatible endpoint.
const DefaultBaseURL = "https://api.groq.com/openai/v1/"

// DefaultModel is used when Options.Model is empty.
const DefaultModel = "whisper-large-v3-turbo"

const (
	// Recordings above either limit are split before upload.
	maxUploadBytes = 25 << 20
	maxEstimated   = 5 * time.Minute

	// The size based duration estimate assumes 2 MB per minute.
	bytesPerMinute = 2 << 20

	chunkCount = 6

	defaultChunkTimeout = 60 * time.Second
	defaultChunkGap     = 200 * time.Millisecond

	// Segments below this average log probability count as low confidence.
	lowConfidence = -0.5
)

var (
	// ErrNoAPIKey is returned by New when the key is empty.
	ErrNoAPIKey = errors.New("groq: api key is empty")
	// ErrAPI wraps every non-2xx response.
	ErrAPI = errors.New("groq: api error")
)

// Options configure a transcription request.
type Options struct {
	Model       string
	Language    string
	Prompt      string // custom vocabulary
	Temperature float64
	// ResponseFormat is json or verbose_json. "text" is requested as json
	// since only the text field is read.
	ResponseFormat string
}

// Client sends WAV audio to the transcription endpoint.
type Client struct {
	client oai.Client
	opts   Options
	log    *slog.Logger

	chunkTimeout time.Duration
	chunkGap     time.Duration
	maxBytes     int
}

// Option is a functional option for Client.
type Option func(*Client, *[]option.RequestOption)

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(url string) Option {
	return func(_ *Client, ro *[]option.RequestOption) {
		*ro = append(*ro, option.WithBaseURL(url))
	}
}

// WithHTTPClient sets the HTTP client used for uploads.
func WithHTTPClient(hc *http.Client) Option {
	return func(_ *Client, ro *[]option.RequestOption) {
		*ro = append(*ro, option.WithHTTPClient(hc))
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client, _ *[]option.RequestOption) { c.log = l }
}

// WithChunkTimeout bounds each upload.
func WithChunkTimeout(d time.Duration) Option {
	return func(c *Client, _ *[]option.RequestOption) { c.chunkTimeout = d }
}

// New creates a Client.
func New(apiKey string, opts Options, options ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrNoAPIKey
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	c := &Client{
		opts:         opts,
		log:          slog.Default(),
		chunkTimeout: defaultChunkTimeout,
		chunkGap:     defaultChunkGap,
		maxBytes:     maxUploadBytes,
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(DefaultBaseURL),
		// The orchestrator surfaces failures to the user; retrying a
		// multi-megabyte upload only delays that.
		option.WithMaxRetries(0),
	}
	for _, o := range options {
		o(c, &reqOpts)
	}
	c.client = oai.NewClient(reqOpts...)
	return c, nil
}

// Transcribe returns the text spoken in wav. Long recordings are split into
// overlapping chunks that are uploaded one after another; a failed chunk is
// logged and skipped, and only a recording where every chunk fails errors.
func (c *Client) Transcribe(ctx context.Context, wav []byte) (string, error) {
	est := estimateDuration(len(wav))
	c.log.Info("transcribing", "bytes", len(wav), "estimated", est.Round(time.Second))

	if len(wav) <= c.maxBytes && est <= maxEstimated {
		return c.transcribeOne(ctx, wav, "audio.wav")
	}
	return c.transcribeChunked(ctx, wav)
}

func (c *Client) transcribeChunked(ctx context.Context, wav []byte) (string, error) {
	samples, rate, err := audio.DecodeWAV(wav)
	if err != nil {
		return "", fmt.Errorf("groq: split recording: %w", err)
	}

	bounds := chunkBounds(len(samples), chunkCount)
	c.log.Info("large recording, uploading in chunks", "chunks", len(bounds))

	var (
		parts   []string
		lastErr error
	)
	for i, b := range bounds {
		if i > 0 && c.chunkGap > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.chunkGap):
			}
		}

		data, err := audio.EncodeWAV(samples[b[0]:b[1]], rate)
		if err != nil {
			return "", fmt.Errorf("groq: encode chunk %d: %w", i, err)
		}
		text, err := c.transcribeOne(ctx, data, fmt.Sprintf("chunk_%d_audio.wav", i))
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			c.log.Error("chunk failed", "chunk", i, "err", err)
			lastErr = err
			continue
		}
		c.log.Debug("chunk complete", "chunk", i, "chars", len(text))
		parts = append(parts, text)
	}

	if len(parts) == 0 && lastErr != nil {
		return "", lastErr
	}
	return strings.Join(parts, " "), nil
}

func (c *Client) transcribeOne(ctx context.Context, wav []byte, name string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.chunkTimeout)
	defer cancel()

	format := oai.AudioResponseFormatJSON
	if c.opts.ResponseFormat == "verbose_json" {
		format = oai.AudioResponseFormatVerboseJSON
	}

	params := oai.AudioTranscriptionNewParams{
		File:           oai.File(bytes.NewReader(wav), name, "audio/wav"),
		Model:          oai.AudioModel(c.opts.Model),
		ResponseFormat: format,
		Temperature:    oai.Float(c.opts.Temperature),
	}
	if c.opts.Language != "" {
		params.Language = oai.String(c.opts.Language)
	}
	if p := strings.TrimSpace(c.opts.Prompt); p != "" {
		params.Prompt = oai.String(p)
	}

	resp, err := c.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", apiError(err)
	}
	c.logQuality(resp.RawJSON())
	return strings.TrimSpace(resp.Text), nil
}

// logQuality reports how many verbose_json segments look unreliable.
func (c *Client) logQuality(raw string) {
	var body struct {
		Segments []struct {
			AvgLogprob float64 `json:"avg_logprob"`
		} `json:"segments"`
	}
	if raw == "" || json.Unmarshal([]byte(raw), &body) != nil || len(body.Segments) == 0 {
		return
	}
	low := 0
	for _, s := range body.Segments {
		if s.AvgLogprob < lowConfidence {
			low++
		}
	}
	total := len(body.Segments)
	c.log.Info("transcription quality",
		"confidence", fmt.Sprintf("%.1f%%", 100*(1-float64(low)/float64(total))),
		"good", total-low, "segments", total)
}

func apiError(err error) error {
	var apiErr *oai.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("groq: request: %w", err)
	}
	msg := apiErr.Message
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d %s", apiErr.StatusCode, http.StatusText(apiErr.StatusCode))
	}
	return fmt.Errorf("%w: %s", ErrAPI, msg)
}

func estimateDuration(n int) time.Duration {
	return time.Duration(float64(n) / bytesPerMinute * float64(time.Minute))
}

// chunkBounds splits n samples into windows of n/parts samples. Consecutive
// windows overlap by a twelfth of a window.
func chunkBounds(n, parts int) [][2]int {
	size := n / parts
	if size == 0 {
		return [][2]int{{0, n}}
	}
	step := size - size/12
	var out [][2]int
	for pos := 0; pos < n; pos += step {
		end := min(pos+size, n)
		out = append(out, [2]int{pos, end})
		if end == n {
			break
		}
	}
	return out
}
