// Package ggrenderer provides a renderer implementation using the gg library.
package ggrenderer

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"

	"github.com/user/framepipe/pkg/imagebuf"
	"github.com/user/framepipe/pkg/ports"
)

// Renderer implements ports.Renderer using the gg library.
type Renderer struct{}

// New creates a new Renderer.
func New() *Renderer {
	return &Renderer{}
}

// FrameImage converts a frame for display. Raw Bayer frames are shown as
// their undemosaiced intensities.
func (r *Renderer) FrameImage(img *imagebuf.Image) (image.Image, error) {
	out, err := imagebuf.ToImage(img)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, imagebuf.ErrUnsupportedFormat) || !img.Format.IsBayer() {
		return nil, err
	}
	return bayerGray(img)
}

func bayerGray(img *imagebuf.Image) (image.Image, error) {
	w, h := int(img.Width), int(img.Height)
	data := img.Data()
	gray := image.NewGray(image.Rect(0, 0, w, h))

	if img.Format == imagebuf.FormatBayer8 {
		if len(data) < w*h {
			return nil, imagebuf.ErrCapacity
		}
		copy(gray.Pix, data[:w*h])
		return gray, nil
	}

	if len(data) < 2*w*h {
		return nil, imagebuf.ErrCapacity
	}
	shift := 8
	if img.OriginalBit > 8 && img.OriginalBit <= 16 {
		shift = int(img.OriginalBit) - 8
	}
	for i := 0; i < w*h; i++ {
		v := (uint16(data[2*i]) | uint16(data[2*i+1])<<8) >> shift
		if v > 0xff {
			v = 0xff
		}
		gray.Pix[i] = uint8(v)
	}
	return gray, nil
}

// CreateCanvas creates a new drawing canvas.
func (r *Renderer) CreateCanvas(width, height int, bg color.Color) ports.Canvas {
	dc := gg.NewContext(width, height)
	dc.SetColor(bg)
	dc.Clear()
	return &Canvas{dc: dc}
}

// DecodeImage decodes PNG or JPEG data, detected from its header.
func (r *Renderer) DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// EncodeImage encodes an image to the specified format.
func (r *Renderer) EncodeImage(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case ports.FormatJPEG:
		opts := &jpeg.Options{Quality: quality}
		if err := jpeg.Encode(&buf, img, opts); err != nil {
			return nil, fmt.Errorf("encode JPEG: %w", err)
		}
	case ports.FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode PNG: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format: %d", format)
	}

	return buf.Bytes(), nil
}

// ResizeImage resizes an image to the specified dimensions.
func (r *Renderer) ResizeImage(img image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

var _ ports.Renderer = (*Renderer)(nil)

// Canvas implements ports.Canvas using gg.Context.
type Canvas struct {
	dc *gg.Context
}

// DrawImageScaled draws an image scaled to the specified dimensions.
// Scaling is done with x/image/draw; gg only composites the result.
func (c *Canvas) DrawImageScaled(img image.Image, x, y, width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	tile := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(tile, tile.Bounds(), img, img.Bounds(), draw.Src, nil)
	c.dc.DrawImage(tile, x, y)
}

// DrawRect draws a filled rectangle.
func (c *Canvas) DrawRect(x, y, w, h int, col color.Color) {
	c.dc.SetColor(col)
	c.dc.DrawRectangle(float64(x), float64(y), float64(w), float64(h))
	c.dc.Fill()
}

// DrawRectStroke draws a rectangle outline.
func (c *Canvas) DrawRectStroke(x, y, w, h int, col color.Color, strokeWidth float64) {
	c.dc.SetColor(col)
	c.dc.SetLineWidth(strokeWidth)
	c.dc.DrawRectangle(float64(x), float64(y), float64(w), float64(h))
	c.dc.Stroke()
}

// DrawText draws text vertically centered on y.
func (c *Canvas) DrawText(text string, x, y int, style ports.TextStyle) {
	c.dc.SetColor(style.Color)

	if style.FontPath != "" {
		// keeps the current face when the font cannot be loaded
		_ = c.dc.LoadFontFace(style.FontPath, style.FontSize)
	}

	ax := 0.0
	switch style.Align {
	case ports.AlignCenter:
		ax = 0.5
	case ports.AlignRight:
		ax = 1.0
	}

	c.dc.DrawStringAnchored(text, float64(x), float64(y), ax, 0.5)
}

// ToImage returns the canvas as an image.Image.
func (c *Canvas) ToImage() image.Image {
	return c.dc.Image()
}

var _ ports.Canvas = (*Canvas)(nil)
