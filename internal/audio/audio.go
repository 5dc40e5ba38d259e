// Package audio предоставляет захват с микрофона и воспроизведение PCM.
//
// Оба движка работают на callback-потоках portaudio: callback только копирует
// сэмплы в буфер под коротким мьютексом, вся логика живёт снаружи.
package audio

import "errors"

const (
	// CaptureSampleRate - целевая частота захвата (вход Gemini Live и Groq).
	CaptureSampleRate = 16000
	// PlaybackSampleRate - родная частота ответа Gemini Live.
	PlaybackSampleRate = 24000
	// FramesPerBuffer - размер буфера callback'а.
	FramesPerBuffer = 1024

	// levelWindow - сколько последних сэмплов смотрим для уровней.
	levelWindow = 1024
	// recentCap - ёмкость кольца недавно проигранных сэмплов.
	recentCap = 2048
)

// Ошибки движков.
var (
	ErrDevice           = errors.New("audio: device unavailable")
	ErrAlreadyRecording = errors.New("audio: already recording")
	ErrNotRecording     = errors.New("audio: not recording")
	ErrEmptyCapture     = errors.New("audio: no samples captured")
)

// StreamConfig описывает формат потока.
type StreamConfig struct {
	SampleRate      float64
	Channels        int
	FramesPerBuffer int
}

// Stream - открытый аппаратный поток.
type Stream interface {
	Start() error
	Stop() error
	Close() error
}

// Backend открывает аппаратные потоки. Возвращает фактически выбранный формат:
// если устройство не поддерживает желаемый, backend откатывается на формат
// устройства по умолчанию без ресемплинга.
type Backend interface {
	OpenInput(want StreamConfig, cb func(in []float32)) (Stream, StreamConfig, error)
	OpenOutput(want StreamConfig, cb func(out []float32)) (Stream, StreamConfig, error)
}
