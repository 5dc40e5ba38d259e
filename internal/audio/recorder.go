package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// StreamingSink получает каждый кадр захвата в s16le прямо из аудиопотока.
// Не должен блокироваться.
type StreamingSink func(pcm []byte)

// streamingKeep ограничивает буфер, пока установлен sink.
const streamingKeep = 4 * levelWindow

// Recorder записывает аудио с микрофона.
type Recorder struct {
	log     *slog.Logger
	backend Backend

	// ctl сериализует Start/Stop; callback его никогда не берёт.
	ctl    sync.Mutex
	stream Stream
	rate   int

	// mu защищает буфер, его держит и callback.
	mu      sync.Mutex
	samples []float32
	running bool

	sink atomic.Pointer[StreamingSink]
}

// NewRecorder создаёт Recorder. Поток открывается только в Start.
func NewRecorder(backend Backend, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{
		log:     log,
		backend: backend,
		rate:    CaptureSampleRate,
	}
}

// Start начинает запись, предварительно очищая прошлый буфер.
func (r *Recorder) Start() error {
	r.ctl.Lock()
	defer r.ctl.Unlock()

	if r.stream != nil {
		return ErrAlreadyRecording
	}

	r.mu.Lock()
	r.samples = make([]float32, 0, CaptureSampleRate*30) // Буфер на 30 сек
	r.mu.Unlock()

	stream, got, err := r.backend.OpenInput(StreamConfig{
		SampleRate:      CaptureSampleRate,
		Channels:        1,
		FramesPerBuffer: FramesPerBuffer,
	}, r.onFrame)
	if err != nil {
		if !errors.Is(err, ErrDevice) {
			err = fmt.Errorf("%w: %v", ErrDevice, err)
		}
		return err
	}
	r.rate = int(got.SampleRate)

	r.mu.Lock()
	r.running = true
	r.mu.Unlock()

	if err := stream.Start(); err != nil {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		stream.Close()
		return fmt.Errorf("%w: start input stream: %v", ErrDevice, err)
	}

	r.stream = stream
	r.log.Debug("запись начата", "rate", r.rate)
	return nil
}

// onFrame - callback аудиопотока. Копирует кадр в буфер и отдаёт его sink'у
// уже после освобождения мьютекса.
func (r *Recorder) onFrame(in []float32) {
	sink := r.sink.Load()

	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.samples = append(r.samples, in...)
	// При потоковой передаче буфер нужен только для уровней, храним хвост.
	if sink != nil && len(r.samples) > streamingKeep {
		n := copy(r.samples, r.samples[len(r.samples)-levelWindow:])
		r.samples = r.samples[:n]
	}
	r.mu.Unlock()

	if sink != nil {
		(*sink)(Float32ToPCM16LE(in))
	}
}

// Stop останавливает запись и возвращает WAV с накопленными сэмплами.
func (r *Recorder) Stop() ([]byte, error) {
	r.ctl.Lock()
	defer r.ctl.Unlock()

	if r.stream == nil {
		return nil, ErrNotRecording
	}

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()

	stream := r.stream
	r.stream = nil
	if err := stream.Stop(); err != nil {
		r.log.Warn("ошибка остановки потока захвата", "err", err)
	}
	if err := stream.Close(); err != nil {
		r.log.Warn("ошибка закрытия потока захвата", "err", err)
	}

	r.mu.Lock()
	samples := r.samples
	r.samples = nil
	r.mu.Unlock()

	r.log.Debug("запись остановлена", "samples", len(samples))
	if len(samples) == 0 {
		return nil, ErrEmptyCapture
	}
	return EncodeWAV(samples, r.rate)
}

// SetStreamingSink устанавливает или (nil) снимает потоковый приёмник.
func (r *Recorder) SetStreamingSink(sink StreamingSink) {
	if sink == nil {
		r.sink.Store(nil)
		return
	}
	r.sink.Store(&sink)
}

// Levels возвращает уровни по последним сэмплам; нули, если запись не идёт.
func (r *Recorder) Levels() Levels {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return Levels{}
	}
	window := append([]float32(nil), tail(r.samples, levelWindow)...)
	r.mu.Unlock()

	return ComputeLevels(window, CaptureBoost)
}

// IsRecording возвращает true если идёт запись.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// SampleRate возвращает частоту последнего открытого потока.
func (r *Recorder) SampleRate() int {
	r.ctl.Lock()
	defer r.ctl.Unlock()
	return r.rate
}

// Close останавливает запись, если она идёт, и снимает sink.
func (r *Recorder) Close() {
	r.SetStreamingSink(nil)
	if _, err := r.Stop(); err != nil && !errors.Is(err, ErrNotRecording) && !errors.Is(err, ErrEmptyCapture) {
		r.log.Warn("ошибка при закрытии записи", "err", err)
	}
}
