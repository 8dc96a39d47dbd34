package gesture

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"strconv"

	"github.com/kwv/strokemesh/trajectory"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// StrokeRenderer draws a stroke with its extracted key-point path overlaid.
// Stroke coordinates are screen coordinates (y grows downward); one stroke
// unit maps to one canvas millimetre.
type StrokeRenderer struct {
	KeyPoints  trajectory.KeyPointOptions
	Padding    float64           // padding around the stroke bounds, in stroke units
	Resolution canvas.Resolution // PNG output resolution
	Labels     bool              // number key points in PNG output
	MaxPixels  int               // PNG long-side cap; Resolution is lowered to fit

	StrokeColor   color.RGBA
	PathColor     color.RGBA
	KeyPointColor color.RGBA
	StartColor    color.RGBA
}

// NewStrokeRenderer creates a renderer with default styling
func NewStrokeRenderer(opts trajectory.KeyPointOptions) *StrokeRenderer {
	return &StrokeRenderer{
		KeyPoints:     opts,
		Padding:       20,
		Resolution:    canvas.DPMM(2),
		Labels:        true,
		MaxPixels:     2048,
		StrokeColor:   color.RGBA{R: 170, G: 170, B: 170, A: 255},
		PathColor:     color.RGBA{R: 33, G: 150, B: 243, A: 255},
		KeyPointColor: color.RGBA{R: 244, G: 67, B: 54, A: 255},
		StartColor:    color.RGBA{R: 76, G: 175, B: 80, A: 255},
	}
}

// canvasRenderer is implemented by both the svg and rasterizer renderers
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// frame maps stroke coordinates onto the canvas.
type frame struct {
	minX, minY    float64
	width, height float64
	padding       float64
}

func (r *StrokeRenderer) frameFor(points []trajectory.Point) frame {
	minX, minY := math.MaxFloat64, math.MaxFloat64
	maxX, maxY := -math.MaxFloat64, -math.MaxFloat64
	for _, p := range points {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return frame{
		minX:    minX,
		minY:    minY,
		width:   (maxX - minX) + 2*r.Padding,
		height:  (maxY - minY) + 2*r.Padding,
		padding: r.Padding,
	}
}

// toCanvas flips y because canvas has its origin at the bottom left.
func (f frame) toCanvas(p trajectory.Point) (float64, float64) {
	return (p.X - f.minX) + f.padding, f.height - ((p.Y - f.minY) + f.padding)
}

// RenderToSVG writes the stroke as an SVG to w
func (r *StrokeRenderer) RenderToSVG(w io.Writer, points []trajectory.Point) error {
	if len(points) == 0 {
		return fmt.Errorf("cannot render an empty stroke")
	}
	f := r.frameFor(points)

	svgRenderer := svg.New(w, f.width, f.height, nil)
	r.renderToCanvas(svgRenderer, f, points, trajectory.ExtractKeyPoints(points, r.KeyPoints))
	return svgRenderer.Close()
}

// RenderToPNG writes the stroke as a PNG to w
func (r *StrokeRenderer) RenderToPNG(w io.Writer, points []trajectory.Point) error {
	if len(points) == 0 {
		return fmt.Errorf("cannot render an empty stroke")
	}
	f := r.frameFor(points)
	keyPoints := trajectory.ExtractKeyPoints(points, r.KeyPoints)

	rast := rasterizer.New(f.width, f.height, r.resolutionFor(f), canvas.DefaultColorSpace)
	r.renderToCanvas(rast, f, points, keyPoints)

	if r.Labels {
		r.drawLabels(rast, f, keyPoints)
	}

	return png.Encode(w, rast)
}

// resolutionFor returns r.Resolution, lowered so the long side of f fits in
// MaxPixels.
func (r *StrokeRenderer) resolutionFor(f frame) canvas.Resolution {
	long := math.Max(f.width, f.height)
	if r.MaxPixels <= 0 || long*r.Resolution.DPMM() <= float64(r.MaxPixels) {
		return r.Resolution
	}
	return canvas.DPMM(float64(r.MaxPixels) / long)
}

func (r *StrokeRenderer) renderToCanvas(renderer canvasRenderer, f frame, points, keyPoints []trajectory.Point) {
	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(f.width, f.height), bgStyle, canvas.Identity)

	// Raw stroke underneath.
	strokeStyle := canvas.DefaultStyle
	strokeStyle.Fill = canvas.Paint{Color: canvas.Transparent}
	strokeStyle.Stroke = canvas.Paint{Color: r.StrokeColor}
	strokeStyle.StrokeWidth = 4.0
	if path := polyline(f, points); path != nil {
		renderer.RenderPath(path, strokeStyle, canvas.Identity)
	}

	// Key-point path on top.
	pathStyle := canvas.DefaultStyle
	pathStyle.Fill = canvas.Paint{Color: canvas.Transparent}
	pathStyle.Stroke = canvas.Paint{Color: r.PathColor}
	pathStyle.StrokeWidth = 2.0
	if path := polyline(f, keyPoints); path != nil {
		renderer.RenderPath(path, pathStyle, canvas.Identity)
	}

	kpStyle := canvas.DefaultStyle
	kpStyle.Fill = canvas.Paint{Color: r.KeyPointColor}
	kpStyle.Stroke = canvas.Paint{Color: canvas.Transparent}
	for i, kp := range keyPoints {
		radius := 3.0
		style := kpStyle
		if i == 0 {
			radius = 5.0
			style.Fill = canvas.Paint{Color: r.StartColor}
		}
		cx, cy := f.toCanvas(kp)
		renderer.RenderPath(canvas.Circle(radius).Translate(cx, cy), style, canvas.Identity)
	}
}

// polyline returns the path through points, or nil for fewer than two.
func polyline(f frame, points []trajectory.Point) *canvas.Path {
	if len(points) < 2 {
		return nil
	}
	path := &canvas.Path{}
	for i, p := range points {
		cx, cy := f.toCanvas(p)
		if i == 0 {
			path.MoveTo(cx, cy)
		} else {
			path.LineTo(cx, cy)
		}
	}
	return path
}

// drawLabels writes each key point's index next to it. The canvas renderers
// need a loaded font family for text, so labels go straight onto the raster.
func (r *StrokeRenderer) drawLabels(img draw.Image, f frame, keyPoints []trajectory.Point) {
	bounds := img.Bounds()
	scaleX := float64(bounds.Dx()) / f.width
	scaleY := float64(bounds.Dy()) / f.height

	for i, kp := range keyPoints {
		// Image rows grow downward, like stroke coordinates.
		x := int(((kp.X-f.minX)+f.padding)*scaleX) + 6
		y := int(((kp.Y-f.minY)+f.padding)*scaleY) - 6
		drawText(img, x, y, strconv.Itoa(i), r.KeyPointColor)
	}
}

func drawText(img draw.Image, x, y int, text string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}
