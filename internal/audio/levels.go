package audio

import "math"

// Levels - грубая оценка громкости по четырём полосам, каждая в [0, 1].
type Levels [4]float32

// Множители общего RMS, добавляемые к каждой полосе.
const (
	CaptureBoost  = 5
	PlaybackBoost = 7
)

// ComputeLevels делит окно на четыре равных куска (последний забирает
// остаток), берёт RMS каждого ×10 с ограничением 1.0 и добавляет общий RMS
// ×boost с повторным ограничением. Пустое окно даёт нули.
func ComputeLevels(window []float32, boost float32) Levels {
	var lv Levels
	if len(window) == 0 {
		return lv
	}

	overall := rms(window)
	chunk := len(window) / len(lv)
	for i := range lv {
		start := i * chunk
		end := start + chunk
		if i == len(lv)-1 {
			end = len(window)
		}
		band := min(rms(window[start:end])*10, 1)
		lv[i] = min(band+overall*boost, 1)
	}
	return lv
}

func rms(s []float32) float32 {
	if len(s) == 0 {
		return 0
	}
	var sum float64
	for _, v := range s {
		sum += float64(v) * float64(v)
	}
	return float32(math.Sqrt(sum / float64(len(s))))
}

// tail возвращает последние n элементов (или все, если их меньше).
func tail(s []float32, n int) []float32 {
	if len(s) > n {
		return s[len(s)-n:]
	}
	return s
}
