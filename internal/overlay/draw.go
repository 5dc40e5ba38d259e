package overlay

import (
	"image"
	"image/color"
	"math"
	"time"

	"gioui.org/font"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget/material"

	"mavoice/internal/i18n"
)

// NRGBA converts c to a gio color with the given opacity in [0, 1].
func (c RGB) NRGBA(alpha float32) color.NRGBA {
	return color.NRGBA{
		R: channel(c[0]),
		G: channel(c[1]),
		B: channel(c[2]),
		A: channel(alpha),
	}
}

func channel(v float32) uint8 {
	return uint8(math.Round(float64(min(max(v, 0), 1)) * 255))
}

var statusKeys = map[State]string{
	StateRecording:  "overlay_recording",
	StateProcessing: "overlay_processing",
	StateDone:       "overlay_done",
	StateListening:  "overlay_listening",
	StateAISpeaking: "overlay_speaking",
}

func drawFrame(gtx layout.Context, th *material.Theme, f Frame, elapsed time.Duration, cfg Config) {
	size := gtx.Constraints.Max
	rr := size.Y / 2

	bg := clip.RRect{Rect: image.Rectangle{Max: size}, NE: rr, NW: rr, SE: rr, SW: rr}
	paint.FillShape(gtx.Ops, cfg.BGColor, bg.Op(gtx.Ops))

	// Tinted glow scaled by intensity.
	inset := gtx.Dp(unit.Dp(2))
	glow := clip.RRect{
		Rect: image.Rect(inset, inset, size.X-inset, size.Y-inset),
		NE:   rr - inset, NW: rr - inset, SE: rr - inset, SW: rr - inset,
	}
	paint.FillShape(gtx.Ops, f.Color.NRGBA(f.Intensity*0.25), glow.Op(gtx.Ops))

	orb := size.Y - 2*gtx.Dp(unit.Dp(14))
	pad := gtx.Dp(unit.Dp(14))
	orbRect := image.Rect(pad, pad, pad+orb, pad+orb)
	drawBars(gtx, orbRect, f.Levels, f.Color.NRGBA(1-f.Mode))
	if f.Mode > 0.01 {
		drawSpinner(gtx, orbRect, elapsed, f.Color.NRGBA(f.Mode))
	}

	key, ok := statusKeys[f.State]
	if !ok {
		return
	}
	th.Palette.Fg = cfg.TextColor
	lbl := material.Label(th, unit.Sp(14), i18n.T(key))
	lbl.Font.Weight = font.Medium

	left := orbRect.Max.X + pad
	gtx.Constraints.Min = image.Point{}
	gtx.Constraints.Max = image.Pt(size.X-left-pad, size.Y)
	layout.Inset{Left: gtx.Metric.PxToDp(left)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.W.Layout(gtx, lbl.Layout)
	})
}

// drawBars renders one vertical bar per frequency band, centred in r.
func drawBars(gtx layout.Context, r image.Rectangle, levels [4]float32, col color.NRGBA) {
	if col.A == 0 {
		return
	}
	n := len(levels)
	gap := r.Dx() / (3*n + 1)
	barW := 2 * gap
	minH := barW
	cy := r.Min.Y + r.Dy()/2

	for i, l := range levels {
		h := max(int(l*float32(r.Dy())), minH)
		x := r.Min.X + gap + i*(barW+gap)
		bar := clip.RRect{
			Rect: image.Rect(x, cy-h/2, x+barW, cy+h/2),
			NE:   barW / 2, NW: barW / 2, SE: barW / 2, SW: barW / 2,
		}
		paint.FillShape(gtx.Ops, col, bar.Op(gtx.Ops))
	}
}

// drawSpinner draws a ring of fading dots rotating around the centre of r.
func drawSpinner(gtx layout.Context, r image.Rectangle, elapsed time.Duration, col color.NRGBA) {
	thickness := gtx.Dp(unit.Dp(3))
	rotation := float64(elapsed.Milliseconds()) / 800.0 * 2 * math.Pi
	center := r.Min.Add(image.Pt(r.Dx()/2, r.Dy()/2))
	radius := r.Dx()/2 - thickness

	const dots = 10
	for i := range dots {
		angle := rotation + float64(i)*2*math.Pi/dots
		x := center.X + int(float64(radius)*math.Cos(angle))
		y := center.Y + int(float64(radius)*math.Sin(angle))

		c := col
		c.A = uint8(float32(col.A) * max(1-float32(i)*0.09, 0.15))
		d := clip.Ellipse{
			Min: image.Pt(x-thickness/2, y-thickness/2),
			Max: image.Pt(x+thickness/2+1, y+thickness/2+1),
		}
		paint.FillShape(gtx.Ops, c, d.Op(gtx.Ops))
	}
}
