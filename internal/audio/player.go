package audio

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// playbackFrames - 20 мс при 24 кГц: очистка очереди слышна в пределах кадра.
const playbackFrames = 480

// Player проигрывает PCM, приходящий из сети.
type Player struct {
	log      *slog.Logger
	stream   Stream
	channels int
	rate     int

	mu      sync.Mutex
	queue   sampleQueue
	recent  recentRing
	scratch []float32

	playing   atomic.Bool
	closeOnce sync.Once
}

// NewPlayer открывает поток на динамики и сразу запускает его.
func NewPlayer(backend Backend, log *slog.Logger) (*Player, error) {
	if log == nil {
		log = slog.Default()
	}
	p := &Player{
		log:      log,
		channels: 1,
		recent:   newRecentRing(recentCap),
	}

	stream, got, err := backend.OpenOutput(StreamConfig{
		SampleRate:      PlaybackSampleRate,
		Channels:        1,
		FramesPerBuffer: playbackFrames,
	}, p.fill)
	if err != nil {
		return nil, err
	}
	p.channels = max(got.Channels, 1)
	p.rate = int(got.SampleRate)

	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("%w: start output stream: %v", ErrDevice, err)
	}
	p.stream = stream
	return p, nil
}

// Enqueue декодирует s16le и ставит сэмплы в очередь.
func (p *Player) Enqueue(pcm []byte) {
	samples := PCM16LEToFloat32(pcm)
	if len(samples) == 0 {
		return
	}
	p.mu.Lock()
	p.queue.write(samples)
	p.mu.Unlock()
}

// fill - callback аудиопотока: out содержит len(out)/channels кадров.
func (p *Player) fill(out []float32) {
	ch := p.channels
	needed := len(out) / ch

	p.mu.Lock()
	if cap(p.scratch) < needed {
		p.scratch = make([]float32, needed)
	}
	buf := p.scratch[:needed]
	n := p.queue.read(buf)
	if n > 0 {
		p.recent.write(buf[:n])
	}
	p.mu.Unlock()

	p.playing.Store(n > 0)

	for i := range needed {
		var v float32
		if i < n {
			v = buf[i]
		}
		for c := range ch {
			out[i*ch+c] = v
		}
	}
	clear(out[needed*ch:])
}

// Clear немедленно сбрасывает очередь и историю (barge-in).
func (p *Player) Clear() {
	p.mu.Lock()
	p.queue.reset()
	p.recent.reset()
	p.mu.Unlock()
}

// Buffered возвращает число сэмплов в очереди.
func (p *Player) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.len()
}

// OutputLevels возвращает уровни по недавно проигранному звуку.
func (p *Player) OutputLevels() Levels {
	p.mu.Lock()
	window := p.recent.last(levelWindow)
	p.mu.Unlock()
	return ComputeLevels(window, PlaybackBoost)
}

// IsPlaying сообщает, был ли в последнем callback'е непустой звук.
func (p *Player) IsPlaying() bool {
	return p.playing.Load()
}

// SampleRate возвращает фактическую частоту потока.
func (p *Player) SampleRate() int { return p.rate }

// Close останавливает поток.
func (p *Player) Close() {
	p.closeOnce.Do(func() {
		if err := p.stream.Stop(); err != nil {
			p.log.Warn("ошибка остановки воспроизведения", "err", err)
		}
		if err := p.stream.Close(); err != nil {
			p.log.Warn("ошибка закрытия воспроизведения", "err", err)
		}
	})
}
