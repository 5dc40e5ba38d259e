// Package embedded содержит ресурсы приложения. Иконки трея рисуются при
// старте, бинарных файлов в репозитории нет.
package embedded

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
)

const iconSize = 64

// Иконки трея в формате PNG.
var (
	IconIdle       = mustIcon(color.RGBA{128, 128, 128, 255}) // серая
	IconRecording  = mustIcon(color.RGBA{220, 50, 50, 255})   // красная
	IconProcessing = mustIcon(color.RGBA{230, 160, 50, 255})  // оранжевая
	IconLive       = mustIcon(color.RGBA{70, 120, 230, 255})  // синяя
)

// drawIcon рисует упрощённый микрофон: круг и ножку.
func drawIcon(c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, iconSize, iconSize))

	centerX, centerY := iconSize/2, iconSize/2
	radius := 20.0

	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			dx := float64(x - centerX)
			dy := float64(y - centerY)
			if dx*dx+dy*dy <= radius*radius {
				img.Set(x, y, c)
			}
		}
	}

	for y := centerY + int(radius); y < centerY+int(radius)+10 && y < iconSize; y++ {
		for x := centerX - 3; x <= centerX+3; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func mustIcon(c color.RGBA) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, drawIcon(c)); err != nil {
		// Кодирование в память не падает для корректного RGBA.
		panic(err)
	}
	return buf.Bytes()
}
