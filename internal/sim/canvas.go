package sim

import (
	"image"
	"image/color"
	"io"
	"math"
	"time"

	"github.com/charmbracelet/log"
	"github.com/san-kum/clifford/internal/dynamo"
)

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Canvas accumulates the visitation density of an orbit into a grayscale
// pixel buffer. Every visit darkens a pixel by one step until it reaches
// black.
//
// A Canvas is not safe for concurrent use; hosts must not read Pixels while
// Render is running.
type Canvas struct {
	width, height int
	pixels        []color.RGBA
	gen           *dynamo.Generator

	bounds         Bounds
	xRange, yRange float64
	calibrated     bool

	iters   uint64
	touched int
	maxed   int
	clamped int

	clock  Clock
	logger *log.Logger
}

type Option func(*Canvas)

func WithClock(c Clock) Option {
	return func(cv *Canvas) { cv.clock = c }
}

func WithLogger(l *log.Logger) Option {
	return func(cv *Canvas) {
		if l != nil {
			cv.logger = l
		}
	}
}

// NewCanvas allocates a white canvas and resolves the parameter source.
func NewCanvas(cfg CanvasConfig, opts ...Option) (*Canvas, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, dynamo.ErrEmptyCanvas
	}
	if !cfg.Start.IsValid() {
		return nil, dynamo.ErrInvalidPoint
	}
	params, err := cfg.Source.Resolve()
	if err != nil {
		return nil, err
	}

	pixels := make([]color.RGBA, cfg.Width*cfg.Height)
	for i := range pixels {
		pixels[i] = white
	}

	c := &Canvas{
		width:  cfg.Width,
		height: cfg.Height,
		pixels: pixels,
		gen:    dynamo.NewGenerator(cfg.Start, params),
		bounds: Bounds{XMin: unsetMin, XMax: unsetMax, YMin: unsetMin, YMax: unsetMax},
		clock:  SystemClock,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.logger.Debug("canvas created", "width", c.width, "height", c.height, "source", cfg.Source.Kind, "params", params)
	return c, nil
}

// Calibrate runs n steps of the generator without painting and widens the
// bounds to cover every sampled point. Repeated calls keep widening from the
// generator's current state.
func (c *Canvas) Calibrate(n int) error {
	if n <= 0 {
		return dynamo.ErrInvalidSamples
	}

	b := c.bounds
	for i := 0; i < n; i++ {
		p := c.gen.Step()
		if !p.IsValid() {
			return &dynamo.RenderError{Phase: "calibrate", Iteration: i, Point: p, Wrapped: dynamo.ErrInvalidPoint}
		}
		if p.X < b.XMin {
			b.XMin = p.X
		}
		if p.X > b.XMax {
			b.XMax = p.X
		}
		if p.Y < b.YMin {
			b.YMin = p.Y
		}
		if p.Y > b.YMax {
			b.YMax = p.Y
		}
	}

	c.bounds = b
	c.xRange = b.XRange()
	c.yRange = b.YRange()
	c.logger.Debug("calibrated", "samples", n, "xmin", b.XMin, "xmax", b.XMax, "ymin", b.YMin, "ymax", b.YMax)

	if !(c.xRange > 0) || !(c.yRange > 0) {
		c.calibrated = false
		return dynamo.ErrDegenerateBounds
	}
	c.calibrated = true
	return nil
}

// Render paints the orbit until budget has elapsed and returns the number of
// iterations performed. The clock is polled once per BatchSize iterations,
// so at least one full batch runs even for a zero or negative budget.
func (c *Canvas) Render(budget time.Duration) (int, error) {
	if !c.calibrated {
		return 0, dynamo.ErrNotCalibrated
	}

	start := c.clock.Now()
	clampedBefore := c.clamped
	n := 0
	for {
		for i := 0; i < BatchSize; i++ {
			p := c.gen.Step()
			if !p.IsValid() {
				return n + i, &dynamo.RenderError{Phase: "render", Iteration: n + i, Point: p, Wrapped: dynamo.ErrInvalidPoint}
			}
			c.decay(c.MapX(p.X), c.MapY(p.Y))
		}
		n += BatchSize

		if c.clock.Now().Sub(start) >= budget {
			break
		}
	}

	if d := c.clamped - clampedBefore; d > 0 {
		c.logger.Warn("points outside calibrated bounds; calibration sample too small", "count", d)
	}
	return n, nil
}

// MapX converts a map x coordinate to a pixel column in [0, width-1].
func (c *Canvas) MapX(x float64) int {
	return c.mapAxis(x, c.bounds.XMin, c.bounds.XMax, c.xRange, c.width)
}

// MapY converts a map y coordinate to a pixel row in [0, height-1].
func (c *Canvas) MapY(y float64) int {
	return c.mapAxis(y, c.bounds.YMin, c.bounds.YMax, c.yRange, c.height)
}

func (c *Canvas) mapAxis(v, lo, hi, rng float64, size int) int {
	if !(v >= lo && v <= hi) {
		c.clamped++
	}
	// Clamp in float space; huge or non-finite values overflow int.
	f := math.Floor((v - lo) / rng * float64(size))
	switch {
	case !(f >= 0):
		return 0
	case f > float64(size-1):
		return size - 1
	}
	return int(f)
}

func (c *Canvas) decay(col, row int) {
	i := row*c.width + col
	px := c.pixels[i]
	switch px.R {
	case 255:
		c.touched++
	case 1:
		c.maxed++
	case 0:
		return
	}
	c.pixels[i] = color.RGBA{R: px.R - 1, G: px.G - 1, B: px.B - 1, A: 255}
}

func (c *Canvas) Width() int            { return c.width }
func (c *Canvas) Height() int           { return c.height }
func (c *Canvas) Iters() uint64         { return c.iters }
func (c *Canvas) SetIters(n uint64)     { c.iters = n }
func (c *Canvas) Touched() int          { return c.touched }
func (c *Canvas) Maxed() int            { return c.maxed }
func (c *Canvas) Clamped() int          { return c.clamped }
func (c *Canvas) Calibrated() bool      { return c.calibrated }
func (c *Canvas) Bounds() Bounds        { return c.bounds }
func (c *Canvas) Params() dynamo.Params { return c.gen.Params() }

// Pixels returns the row-major buffer, top row first. Callers must not
// modify it.
func (c *Canvas) Pixels() []color.RGBA { return c.pixels }

// Intensity returns the channel value of the pixel at (col, row).
func (c *Canvas) Intensity(col, row int) uint8 {
	return c.pixels[row*c.width+col].R
}

// Pix appends the buffer as packed RGBA8 bytes to dst[:0] and returns it.
func (c *Canvas) Pix(dst []byte) []byte {
	need := len(c.pixels) * 4
	if cap(dst) < need {
		dst = make([]byte, need)
	}
	dst = dst[:need]
	for i, px := range c.pixels {
		j := i * 4
		dst[j] = px.R
		dst[j+1] = px.G
		dst[j+2] = px.B
		dst[j+3] = px.A
	}
	return dst
}

// Image returns a copy of the buffer as an *image.RGBA.
func (c *Canvas) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, c.width, c.height))
	img.Pix = c.Pix(img.Pix)
	return img
}
