package audio_test

import (
	"errors"
	"sync"

	"mavoice/internal/audio"
)

// fakeStream records lifecycle calls.
type fakeStream struct {
	mu                     sync.Mutex
	started, stopped, shut int
	startErr               error
}

func (s *fakeStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started++
	return s.startErr
}

func (s *fakeStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped++
	return nil
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shut++
	return nil
}

// fakeBackend hands the registered callbacks to the test so it can play the
// part of the audio hardware.
type fakeBackend struct {
	mu       sync.Mutex
	inCB     func([]float32)
	outCB    func([]float32)
	inRate   float64
	outChans int
	openErr  error
	streams  []*fakeStream
}

func (b *fakeBackend) OpenInput(want audio.StreamConfig, cb func([]float32)) (audio.Stream, audio.StreamConfig, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openErr != nil {
		return nil, audio.StreamConfig{}, b.openErr
	}
	b.inCB = cb
	got := want
	if b.inRate != 0 {
		got.SampleRate = b.inRate
	}
	s := &fakeStream{}
	b.streams = append(b.streams, s)
	return s, got, nil
}

func (b *fakeBackend) OpenOutput(want audio.StreamConfig, cb func([]float32)) (audio.Stream, audio.StreamConfig, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openErr != nil {
		return nil, audio.StreamConfig{}, b.openErr
	}
	b.outCB = cb
	got := want
	if b.outChans != 0 {
		got.Channels = b.outChans
	}
	s := &fakeStream{}
	b.streams = append(b.streams, s)
	return s, got, nil
}

func (b *fakeBackend) capture(frame []float32) {
	b.mu.Lock()
	cb := b.inCB
	b.mu.Unlock()
	cb(frame)
}

func (b *fakeBackend) render(out []float32) {
	b.mu.Lock()
	cb := b.outCB
	b.mu.Unlock()
	cb(out)
}

var errNoDevice = errors.New("no default device")
