package groq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"mavoice/internal/audio"
)

type upload struct {
	path, auth                            string
	model, language, prompt, format, temp string
	filename                              string
	samples                               int
}

type fakeGroq struct {
	mu      sync.Mutex
	uploads []upload
	reply   func(n int, w http.ResponseWriter)
}

func (f *fakeGroq) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	u := upload{
		path:     r.URL.Path,
		auth:     r.Header.Get("Authorization"),
		model:    r.FormValue("model"),
		language: r.FormValue("language"),
		prompt:   r.FormValue("prompt"),
		format:   r.FormValue("response_format"),
		temp:     r.FormValue("temperature"),
	}
	if file, hdr, err := r.FormFile("file"); err == nil {
		u.filename = hdr.Filename
		data, _ := io.ReadAll(file)
		if s, _, err := audio.DecodeWAV(data); err == nil {
			u.samples = len(s)
		}
	}

	f.mu.Lock()
	n := len(f.uploads)
	f.uploads = append(f.uploads, u)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if f.reply != nil {
		f.reply(n, w)
		return
	}
	fmt.Fprintf(w, `{"text":" part%d "}`, n)
}

func newTestClient(t *testing.T, f *fakeGroq, opts Options) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	c, err := New("gsk_test", opts,
		WithBaseURL(srv.URL+"/"),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		t.Fatal(err)
	}
	c.chunkGap = 0
	return c
}

func wavOf(t *testing.T, n int) []byte {
	t.Helper()
	s := make([]float32, n)
	for i := range s {
		s[i] = float32(i%100) / 200
	}
	data, err := audio.EncodeWAV(s, audio.CaptureSampleRate)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestNew_RequiresKey(t *testing.T) {
	t.Parallel()
	if _, err := New("  ", Options{}); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("err = %v; want ErrNoAPIKey", err)
	}
}

func TestTranscribe_SingleRequest(t *testing.T) {
	t.Parallel()

	f := &fakeGroq{}
	c := newTestClient(t, f, Options{
		Language: "en",
		Prompt:   "  Kubernetes, gRPC ",
	})

	text, err := c.Transcribe(context.Background(), wavOf(t, 1600))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "part0" {
		t.Errorf("text = %q; want trimmed %q", text, "part0")
	}

	if len(f.uploads) != 1 {
		t.Fatalf("uploads = %d; want 1", len(f.uploads))
	}
	u := f.uploads[0]
	checks := []struct{ name, got, want string }{
		{"path", u.path, "/audio/transcriptions"},
		{"auth", u.auth, "Bearer gsk_test"},
		{"model", u.model, DefaultModel},
		{"language", u.language, "en"},
		{"prompt", u.prompt, "Kubernetes, gRPC"},
		{"response_format", u.format, "json"},
		{"temperature", u.temp, "0"},
		{"filename", u.filename, "audio.wav"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q; want %q", c.name, c.got, c.want)
		}
	}
	if u.samples != 1600 {
		t.Errorf("uploaded samples = %d; want 1600", u.samples)
	}
}

func TestTranscribe_OmitsEmptyOptionalFields(t *testing.T) {
	t.Parallel()

	f := &fakeGroq{}
	c := newTestClient(t, f, Options{Model: "whisper-large-v3", Prompt: "   "})
	if _, err := c.Transcribe(context.Background(), wavOf(t, 100)); err != nil {
		t.Fatal(err)
	}
	u := f.uploads[0]
	if u.language != "" || u.prompt != "" {
		t.Errorf("language=%q prompt=%q; want both omitted", u.language, u.prompt)
	}
	if u.model != "whisper-large-v3" {
		t.Errorf("model = %q", u.model)
	}
}

func TestTranscribe_APIError(t *testing.T) {
	t.Parallel()

	f := &fakeGroq{reply: func(_ int, w http.ResponseWriter) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"Invalid API Key","type":"invalid_request_error","code":"invalid_api_key"}}`)
	}}
	c := newTestClient(t, f, Options{})

	_, err := c.Transcribe(context.Background(), wavOf(t, 100))
	if !errors.Is(err, ErrAPI) {
		t.Fatalf("err = %v; want ErrAPI", err)
	}
	if !strings.HasPrefix(err.Error(), "groq: api error: ") {
		t.Errorf("err = %q; want groq: api error prefix", err)
	}
	if len(f.uploads) != 1 {
		t.Errorf("uploads = %d; want no retries", len(f.uploads))
	}
}

func TestTranscribe_ChunksLargeRecordings(t *testing.T) {
	t.Parallel()

	f := &fakeGroq{}
	c := newTestClient(t, f, Options{})
	c.maxBytes = 1000

	const n = 1200
	text, err := c.Transcribe(context.Background(), wavOf(t, n))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	bounds := chunkBounds(n, chunkCount)
	if len(f.uploads) != len(bounds) {
		t.Fatalf("uploads = %d; want %d", len(f.uploads), len(bounds))
	}
	var want []string
	for i, b := range bounds {
		want = append(want, fmt.Sprintf("part%d", i))
		if got := f.uploads[i].samples; got != b[1]-b[0] {
			t.Errorf("chunk %d samples = %d; want %d", i, got, b[1]-b[0])
		}
		if got := f.uploads[i].filename; got != fmt.Sprintf("chunk_%d_audio.wav", i) {
			t.Errorf("chunk %d filename = %q", i, got)
		}
	}
	if text != strings.Join(want, " ") {
		t.Errorf("text = %q; want %q", text, strings.Join(want, " "))
	}
}

func TestTranscribe_ChunkFailureIsSkipped(t *testing.T) {
	t.Parallel()

	f := &fakeGroq{reply: func(n int, w http.ResponseWriter) {
		if n == 1 {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error":{"message":"bad chunk"}}`)
			return
		}
		fmt.Fprintf(w, `{"text":"p%d"}`, n)
	}}
	c := newTestClient(t, f, Options{})
	c.maxBytes = 1000

	text, err := c.Transcribe(context.Background(), wavOf(t, 1200))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if strings.Contains(text, "p1") || !strings.HasPrefix(text, "p0 p2") {
		t.Errorf("text = %q; want chunk 1 skipped", text)
	}
}

func TestTranscribe_AllChunksFail(t *testing.T) {
	t.Parallel()

	f := &fakeGroq{reply: func(_ int, w http.ResponseWriter) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":{"message":"down"}}`)
	}}
	c := newTestClient(t, f, Options{})
	c.maxBytes = 1000

	if _, err := c.Transcribe(context.Background(), wavOf(t, 1200)); !errors.Is(err, ErrAPI) {
		t.Errorf("err = %v; want ErrAPI", err)
	}
}

func TestTranscribe_ContextCancelled(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	f := &fakeGroq{reply: func(_ int, w http.ResponseWriter) { <-block }}
	c := newTestClient(t, f, Options{})
	t.Cleanup(func() { close(block) })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.Transcribe(ctx, wavOf(t, 100)); err == nil {
		t.Error("Transcribe succeeded after context deadline")
	}
}

func TestChunkBounds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		n     int
		parts int
		want  [][2]int
	}{
		{"tiny", 3, 6, [][2]int{{0, 3}}},
		{"no overlap below twelve", 60, 6, [][2]int{{0, 10}, {10, 20}, {20, 30}, {30, 40}, {40, 50}, {50, 60}}},
		{"overlap", 1200, 6, [][2]int{
			{0, 200}, {184, 384}, {368, 568}, {552, 752}, {736, 936}, {920, 1120}, {1104, 1200},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := chunkBounds(tt.n, tt.parts)
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("chunkBounds(%d, %d) = %v; want %v", tt.n, tt.parts, got, tt.want)
			}
		})
	}
}

func TestEstimateDuration(t *testing.T) {
	t.Parallel()
	if got := estimateDuration(10 << 20); got != 5*time.Minute {
		t.Errorf("estimateDuration(10MB) = %v; want 5m", got)
	}
}
