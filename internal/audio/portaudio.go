package audio

import (
	"fmt"
	"log/slog"

	"github.com/gordonklaus/portaudio"
)

// PortAudio - Backend поверх portaudio.
type PortAudio struct {
	log *slog.Logger
}

// NewPortAudio инициализирует portaudio. Terminate нужно вызвать при выходе.
func NewPortAudio(log *slog.Logger) (*PortAudio, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: initialize: %v", ErrDevice, err)
	}
	return &PortAudio{log: log}, nil
}

// Terminate освобождает portaudio.
func (p *PortAudio) Terminate() error {
	return portaudio.Terminate()
}

// OpenInput открывает поток с микрофона по умолчанию.
func (p *PortAudio) OpenInput(want StreamConfig, cb func(in []float32)) (Stream, StreamConfig, error) {
	dev, err := portaudio.DefaultInputDevice()
	if err != nil || dev == nil {
		return nil, StreamConfig{}, fmt.Errorf("%w: no input device: %v", ErrDevice, err)
	}

	params := portaudio.LowLatencyParameters(dev, nil)
	params.Input.Channels = want.Channels
	params.Output.Device = nil
	params.Output.Channels = 0
	params.SampleRate = want.SampleRate
	params.FramesPerBuffer = want.FramesPerBuffer

	if err := portaudio.IsFormatSupported(params, cb); err != nil {
		p.log.Warn("формат захвата не поддерживается, используем формат устройства",
			"device", dev.Name, "want_rate", want.SampleRate, "device_rate", dev.DefaultSampleRate, "err", err)
		params.SampleRate = dev.DefaultSampleRate
	}

	stream, err := portaudio.OpenStream(params, cb)
	if err != nil {
		return nil, StreamConfig{}, fmt.Errorf("%w: open input stream: %v", ErrDevice, err)
	}

	got := StreamConfig{
		SampleRate:      params.SampleRate,
		Channels:        params.Input.Channels,
		FramesPerBuffer: params.FramesPerBuffer,
	}
	p.log.Debug("поток захвата открыт", "device", dev.Name, "rate", got.SampleRate, "channels", got.Channels)
	return stream, got, nil
}

// OpenOutput открывает поток на динамики по умолчанию.
func (p *PortAudio) OpenOutput(want StreamConfig, cb func(out []float32)) (Stream, StreamConfig, error) {
	dev, err := portaudio.DefaultOutputDevice()
	if err != nil || dev == nil {
		return nil, StreamConfig{}, fmt.Errorf("%w: no output device: %v", ErrDevice, err)
	}

	params := portaudio.HighLatencyParameters(nil, dev)
	params.Input.Device = nil
	params.Input.Channels = 0
	params.Output.Channels = want.Channels
	params.SampleRate = want.SampleRate
	params.FramesPerBuffer = want.FramesPerBuffer

	if err := portaudio.IsFormatSupported(params, cb); err != nil {
		channels := want.Channels
		if dev.MaxOutputChannels > 0 && channels > dev.MaxOutputChannels {
			channels = dev.MaxOutputChannels
		}
		if channels < 1 {
			channels = 2
		}
		p.log.Warn("формат воспроизведения не поддерживается, используем формат устройства",
			"device", dev.Name, "want_rate", want.SampleRate, "device_rate", dev.DefaultSampleRate,
			"channels", channels, "err", err)
		params.SampleRate = dev.DefaultSampleRate
		params.Output.Channels = channels
	}

	stream, err := portaudio.OpenStream(params, cb)
	if err != nil {
		return nil, StreamConfig{}, fmt.Errorf("%w: open output stream: %v", ErrDevice, err)
	}

	got := StreamConfig{
		SampleRate:      params.SampleRate,
		Channels:        params.Output.Channels,
		FramesPerBuffer: params.FramesPerBuffer,
	}
	p.log.Debug("поток воспроизведения открыт", "device", dev.Name, "rate", got.SampleRate, "channels", got.Channels)
	return stream, got, nil
}
