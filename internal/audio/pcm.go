package audio

import (
	"encoding/binary"
	"math"
)

// pcmScale - i16::MAX, используется в обе стороны.
const pcmScale = 32767

// Float32ToPCM16LE переводит нормализованные сэмплы в s16le.
func Float32ToPCM16LE(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(toInt16(s)))
	}
	return out
}

// PCM16LEToFloat32 переводит s16le в нормализованные сэмплы.
// Лишний нечётный байт в конце игнорируется.
func PCM16LEToFloat32(pcm []byte) []float32 {
	out := make([]float32, len(pcm)/2)
	for i := range out {
		out[i] = float32(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / pcmScale
	}
	return out
}

func toInt16(s float32) int16 {
	v := math.Round(float64(s) * pcmScale)
	if v > pcmScale {
		v = pcmScale
	} else if v < -pcmScale-1 {
		v = -pcmScale - 1
	}
	return int16(v)
}
