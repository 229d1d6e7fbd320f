package plot

import (
	"fmt"
	"image"
	"io"
	"math"
	"time"

	"github.com/fogleman/gg"
	"github.com/raykavin/tradesim/pkg/core"
)

const (
	DefaultWidth  = 800
	DefaultHeight = 300

	colorGrid     = "#1a1a1a"
	colorLabel    = "#888888"
	colorUp       = "#26a69a"
	colorDown     = "#ef5350"
	colorPrice    = "#2962ff"
	maxCandleBody = 8.0
)

// Padding is the space around the plotting area, in pixels
type Padding struct {
	Top, Right, Bottom, Left float64
}

// Frame is the read-only input of one render pass
type Frame struct {
	Candles      core.Candles
	CurrentPrice float64
	PnL          float64
}

// Renderer draws candlestick frames onto a fixed-size raster
type Renderer struct {
	width      int
	height     int
	padding    Padding
	background string
	location   *time.Location
}

// RendererOption configures a Renderer
type RendererOption func(*Renderer)

// WithSize sets the canvas size
func WithSize(width, height int) RendererOption {
	return func(r *Renderer) {
		if width > 0 && height > 0 {
			r.width, r.height = width, height
		}
	}
}

// WithPadding sets the margins around the chart
func WithPadding(padding Padding) RendererOption {
	return func(r *Renderer) { r.padding = padding }
}

// WithBackground sets the fill used to clear the canvas
func WithBackground(hex string) RendererOption {
	return func(r *Renderer) { r.background = hex }
}

// WithLocation sets the zone of the time labels
func WithLocation(location *time.Location) RendererOption {
	return func(r *Renderer) { r.location = location }
}

func NewRenderer(options ...RendererOption) *Renderer {
	r := &Renderer{
		width:      DefaultWidth,
		height:     DefaultHeight,
		padding:    Padding{Top: 20, Right: 40, Bottom: 30, Left: 60},
		background: "#0a0a0a",
		location:   time.Local,
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Size returns the canvas width and height
func (r *Renderer) Size() (int, int) { return r.width, r.height }

// projection holds the affine price and time mappings of a frame
type projection struct {
	left, top  float64
	chartW     float64
	chartH     float64
	minPrice   float64
	priceRange float64
	minTime    time.Time
	timeRange  time.Duration
}

func (p projection) y(price float64) float64 {
	return p.top + p.chartH - (price-p.minPrice)/p.priceRange*p.chartH
}

func (p projection) x(t time.Time) float64 {
	if p.timeRange <= 0 {
		return p.left
	}
	return p.left + float64(t.Sub(p.minTime))/float64(p.timeRange)*p.chartW
}

func (r *Renderer) project(candles core.Candles) projection {
	low, high := candles.PriceRange()
	minPrice, maxPrice := low*0.999, high*1.001

	priceRange := maxPrice - minPrice
	if priceRange <= 0 {
		priceRange = 1
	}

	first, last := candles[0].Time, candles[len(candles)-1].Time
	return projection{
		left:       r.padding.Left,
		top:        r.padding.Top,
		chartW:     float64(r.width) - r.padding.Left - r.padding.Right,
		chartH:     float64(r.height) - r.padding.Top - r.padding.Bottom,
		minPrice:   minPrice,
		priceRange: priceRange,
		minTime:    first,
		timeRange:  last.Sub(first),
	}
}

// Render draws frame. An empty buffer yields a blank canvas.
func (r *Renderer) Render(frame Frame) image.Image {
	return r.draw(frame).Image()
}

// RenderPNG renders frame and encodes it as PNG
func (r *Renderer) RenderPNG(w io.Writer, frame Frame) error {
	return r.draw(frame).EncodePNG(w)
}

func (r *Renderer) draw(frame Frame) *gg.Context {
	dc := gg.NewContext(r.width, r.height)
	dc.SetHexColor(r.background)
	dc.Clear()

	if len(frame.Candles) == 0 {
		return dc
	}

	p := r.project(frame.Candles)
	right := float64(r.width) - r.padding.Right
	bottom := float64(r.height) - r.padding.Bottom

	// price grid
	dc.SetLineWidth(1)
	for i := 0; i <= 5; i++ {
		price := p.minPrice + float64(i)*p.priceRange/5
		y := p.y(price)

		dc.SetHexColor(colorGrid)
		dc.DrawLine(p.left, y, right, y)
		dc.Stroke()

		dc.SetHexColor(colorLabel)
		dc.DrawStringAnchored(fmt.Sprintf("%.1f", price), p.left-5, y, 1, 0.5)
	}

	// time grid
	n := len(frame.Candles)
	for i := 0; i <= 4; i++ {
		idx := int(math.Min(math.Floor(float64(i*n)/4), float64(n-1)))
		t := frame.Candles[idx].Time
		x := p.x(t)

		dc.SetHexColor(colorGrid)
		dc.DrawLine(x, p.top, x, bottom)
		dc.Stroke()

		local := t.In(r.location)
		dc.SetHexColor(colorLabel)
		dc.DrawStringAnchored(fmt.Sprintf("%d:%02d", local.Hour(), local.Minute()), x, bottom+15, 0.5, 0.5)
	}

	// candles
	width := math.Min(maxCandleBody, p.chartW/float64(n)*0.8)
	for _, c := range frame.Candles {
		color := colorDown
		if c.Bullish() {
			color = colorUp
		}
		dc.SetHexColor(color)

		x := p.x(c.Time)
		dc.DrawLine(x, p.y(c.High), x, p.y(c.Low))
		dc.Stroke()

		openY, closeY := p.y(c.Open), p.y(c.Close)
		height := math.Max(1, math.Abs(closeY-openY))
		dc.DrawRectangle(x-width/2, math.Min(openY, closeY), width, height)
		dc.Fill()
	}

	// current price
	if frame.CurrentPrice > 0 {
		y := p.y(frame.CurrentPrice)
		dc.SetHexColor(colorPrice)
		dc.SetDash(5, 3)
		dc.DrawLine(p.left, y, right, y)
		dc.Stroke()
		dc.SetDash()

		dc.DrawStringAnchored(fmt.Sprintf("%.2f", frame.CurrentPrice), right+5, y, 0, 0.5)
	}

	if frame.PnL != 0 {
		dc.SetHexColor(pnlColor(frame.PnL))
		dc.DrawStringAnchored(FormatPnL(frame.PnL), right, p.top-5, 1, 0)
	}

	return dc
}

// FormatPnL renders a signed total, PnL: +$12.50 or PnL: $-3.00
func FormatPnL(pnl float64) string {
	sign := ""
	if pnl >= 0 {
		sign = "+"
	}
	return fmt.Sprintf("PnL: %s$%.2f", sign, pnl)
}

func pnlColor(pnl float64) string {
	if pnl > 0 {
		return colorUp
	}
	return colorDown
}
