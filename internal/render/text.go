package render

import (
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	white = image.NewUniform(color.White)
	black = image.NewUniform(color.Black)
)

// textBlock draws lines with the 7x13 face enlarged by scale, centered
// horizontally on cx, the first line's top at top. It returns the y just
// below the block.
func textBlock(dst draw.Image, lines []string, cx, top, scale int) int {
	if scale < 1 {
		scale = 1
	}
	face := basicfont.Face7x13
	lineHeight := face.Metrics().Height.Ceil()
	ascent := face.Metrics().Ascent.Ceil()

	y := top
	for _, line := range lines {
		d := &font.Drawer{Face: face}
		w := d.MeasureString(line).Ceil()
		if w == 0 {
			y += lineHeight * scale
			continue
		}

		// draw at 1x, then scale up so large walls stay readable
		small := image.NewRGBA(image.Rect(0, 0, w, lineHeight))
		draw.Draw(small, small.Bounds(), image.Transparent, image.Point{}, draw.Src)
		d.Dst = small
		d.Src = black
		d.Dot = fixed.Point26_6{X: 0, Y: fixed.I(ascent)}
		d.DrawString(line)

		target := image.Rect(cx-w*scale/2, y, cx-w*scale/2+w*scale, y+lineHeight*scale)
		draw.NearestNeighbor.Scale(dst, target, small, small.Bounds(), draw.Over, nil)
		y += lineHeight * scale
	}
	return y
}

// textScale picks a scale so a 13px line is roughly 1/40 of the height
func textScale(height int) int {
	s := height / (13 * 40)
	if s < 1 {
		return 1
	}
	return s
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func fill(dst draw.Image, r image.Rectangle, src image.Image) {
	draw.Draw(dst, r, src, image.Point{}, draw.Src)
}
