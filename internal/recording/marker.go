package recording

import (
	"image"
	"image/color"
	"image/draw"
	"math"
)

// markerColor is reserved in every palette so the ripple survives quantization.
var markerColor = color.RGBA{66, 133, 244, 255}

const (
	rippleRadius = 15
	rippleRings  = 3
)

// drawMarker returns a copy of fr.Image with a click ripple and cursor at
// fr.Marker. Frames without a marker are returned as is.
func drawMarker(fr Frame) image.Image {
	if fr.Marker == nil {
		return fr.Image
	}

	bounds := fr.Image.Bounds()
	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, fr.Image, bounds.Min, draw.Src)

	x, y := bounds.Min.X+fr.Marker.X, bounds.Min.Y+fr.Marker.Y
	for ring := 0; ring < rippleRings; ring++ {
		drawCircle(result, x, y, rippleRadius+ring*2, markerColor)
	}
	drawCursor(result, x, y)
	return result
}

func drawCircle(img *image.RGBA, x, y, radius int, c color.RGBA) {
	for angle := 0.0; angle < 360; angle++ {
		rad := angle * math.Pi / 180
		px := x + int(math.Round(float64(radius)*math.Cos(rad)))
		py := y + int(math.Round(float64(radius)*math.Sin(rad)))
		setPixelSafe(img, px, py, c)
		setPixelSafe(img, px+1, py, c)
		setPixelSafe(img, px, py+1, c)
	}
}

// drawCursor draws a filled arrow with its tip at (x, y).
func drawCursor(img *image.RGBA, x, y int) {
	outline := color.RGBA{0, 0, 0, 255}
	fill := color.RGBA{255, 255, 255, 255}

	for dy := 0; dy < 18; dy++ {
		for dx := 0; dx < 13; dx++ {
			if isInsideCursor(dx, dy) {
				setPixelSafe(img, x+dx, y+dy, fill)
			}
		}
	}

	points := []image.Point{{0, 0}, {0, 16}, {4, 12}, {7, 18}, {10, 17}, {7, 11}, {12, 11}}
	for i := range points {
		p1, p2 := points[i], points[(i+1)%len(points)]
		drawLine(img, x+p1.X, y+p1.Y, x+p2.X, y+p2.Y, outline)
	}
}

func isInsideCursor(dx, dy int) bool {
	if dx < 0 || dy < 0 || dy > 16 {
		return false
	}
	if dy <= 11 {
		return dx <= dy*12/16
	}
	return dx <= 4
}

// drawLine uses Bresenham's algorithm.
func drawLine(img *image.RGBA, x1, y1, x2, y2 int, c color.RGBA) {
	dx := abs(x2 - x1)
	dy := abs(y2 - y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy

	for {
		setPixelSafe(img, x1, y1, c)
		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func setPixelSafe(img *image.RGBA, x, y int, c color.RGBA) {
	if (image.Point{X: x, Y: y}).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
