// Package recording renders an exploration session as an animated GIF, one
// frame per step with a marker where the element was acted on.
package recording

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"os"
	"sort"

	"github.com/nfnt/resize"
)

// Options configures GIF generation
type Options struct {
	FrameDelayMS int  // how long each step stays on screen
	MaxWidth     uint // frames wider than this are downscaled
}

// Frame is one captured step.
type Frame struct {
	Image image.Image
	// Marker is the acted-on point in viewport coordinates, nil for none.
	Marker *image.Point
}

// Recorder accumulates frames in memory until Write.
type Recorder struct {
	opts   Options
	frames []Frame
}

// New creates an empty Recorder.
func New(opts Options) *Recorder {
	if opts.FrameDelayMS <= 0 {
		opts.FrameDelayMS = 1200
	}
	if opts.MaxWidth == 0 {
		opts.MaxWidth = 800
	}
	return &Recorder{opts: opts}
}

// Add appends a frame with no marker.
func (r *Recorder) Add(img image.Image) {
	r.frames = append(r.frames, Frame{Image: img})
}

// AddClick appends a frame with a click marker at (x, y).
func (r *Recorder) AddClick(img image.Image, x, y int) {
	r.frames = append(r.frames, Frame{Image: img, Marker: &image.Point{X: x, Y: y}})
}

// Len returns the number of recorded frames.
func (r *Recorder) Len() int {
	return len(r.frames)
}

// Write encodes the frames to outputPath and returns the file size.
func (r *Recorder) Write(outputPath string) (int64, error) {
	if len(r.frames) == 0 {
		return 0, errors.New("no frames recorded")
	}

	g, err := r.encode()
	if err != nil {
		return 0, err
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", outputPath, err)
	}
	defer f.Close()

	if err := gif.EncodeAll(f, g); err != nil {
		return 0, fmt.Errorf("encode gif: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (r *Recorder) encode() (*gif.GIF, error) {
	bounds := r.frames[0].Image.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, errors.New("empty first frame")
	}

	outputWidth := uint(bounds.Dx())
	if outputWidth > r.opts.MaxWidth {
		outputWidth = r.opts.MaxWidth
	}
	outputHeight := uint(float64(outputWidth) * float64(bounds.Dy()) / float64(bounds.Dx()))

	// GIF delay is in 100ths of a second.
	delay := r.opts.FrameDelayMS / 10

	g := &gif.GIF{
		Image:     make([]*image.Paletted, len(r.frames)),
		Delay:     make([]int, len(r.frames)),
		LoopCount: 0,
	}

	marked := make([]image.Image, len(r.frames))
	for i, fr := range r.frames {
		marked[i] = drawMarker(fr)
	}
	palette := generatePalette(marked[0])

	for i, img := range marked {
		resized := resize.Resize(outputWidth, outputHeight, img, resize.Lanczos3)
		paletted := image.NewPaletted(resized.Bounds(), palette)
		draw.FloydSteinberg.Draw(paletted, resized.Bounds(), resized, resized.Bounds().Min)

		g.Image[i] = paletted
		g.Delay[i] = delay
	}
	return g, nil
}

// generatePalette builds a 256-color palette from the most frequent colors
// of img, sampled every 4th pixel.
func generatePalette(img image.Image) color.Palette {
	bounds := img.Bounds()
	colorMap := make(map[color.RGBA]int)

	const step = 4
	for y := bounds.Min.Y; y < bounds.Max.Y; y += step {
		for x := bounds.Min.X; x < bounds.Max.X; x += step {
			r, g, b, a := img.At(x, y).RGBA()
			colorMap[color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}]++
		}
	}

	type colorCount struct {
		c     color.RGBA
		count int
	}
	colors := make([]colorCount, 0, len(colorMap))
	for c, count := range colorMap {
		colors = append(colors, colorCount{c, count})
	}
	sort.Slice(colors, func(i, j int) bool {
		if colors[i].count != colors[j].count {
			return colors[i].count > colors[j].count
		}
		return rgbaKey(colors[i].c) < rgbaKey(colors[j].c)
	})

	palette := make(color.Palette, 0, 256)
	palette = append(palette, markerColor)
	for i := 0; i < len(colors) && len(palette) < 256; i++ {
		if colors[i].c == markerColor {
			continue
		}
		palette = append(palette, colors[i].c)
	}

	for len(palette) < 256 {
		gray := uint8(len(palette))
		palette = append(palette, color.RGBA{gray, gray, gray, 255})
	}
	return palette
}

func rgbaKey(c color.RGBA) uint32 {
	return uint32(c.R)<<24 | uint32(c.G)<<16 | uint32(c.B)<<8 | uint32(c.A)
}
