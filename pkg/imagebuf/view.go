package imagebuf

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// ErrUnsupportedFormat is returned when a format has no image.Image mapping.
var ErrUnsupportedFormat = errors.New("unsupported pixel format")

// YUVOrder returns the byte offsets of Y0, U, Y1 and V inside a packed 4:2:2
// macropixel for the given pattern.
func YUVOrder(p Pattern) (y0, u, y1, v int, ok bool) {
	switch p {
	case PatternYUYV:
		return 0, 1, 2, 3, true
	case PatternUYVY:
		return 1, 0, 3, 2, true
	case PatternYVYU:
		return 0, 3, 2, 1, true
	case PatternVYUY:
		return 1, 2, 3, 0, true
	}
	return 0, 0, 0, 0, false
}

// ToImage converts the current view to a standard library image.
// Gray8 views alias the buffer; every other format is converted into a new
// *image.RGBA or *image.Gray16.
func ToImage(img *Image) (image.Image, error) {
	data := img.Data()
	if data == nil {
		return nil, ErrNoBuffer
	}
	w, h := int(img.Width), int(img.Height)
	rect := image.Rect(0, 0, w, h)
	if bpp := bytesPerPixel(img.Format); bpp > 0 && len(data) < w*h*bpp {
		return nil, fmt.Errorf("%w: view has %d bytes for %dx%d %s", ErrCapacity, len(data), w, h, img.Format)
	}

	switch {
	case img.Format == FormatGray8:
		return &image.Gray{Pix: data[:w*h], Stride: w, Rect: rect}, nil

	case img.Format.IsGray16():
		out := image.NewGray16(rect)
		shift := 16 - int(img.OriginalBit)
		if shift < 0 || shift > 8 {
			shift = 0
		}
		for i := 0; i < w*h; i++ {
			v := uint16(data[2*i]) | uint16(data[2*i+1])<<8
			out.SetGray16(i%w, i/w, color.Gray16{Y: v << shift})
		}
		return out, nil

	case img.Format == FormatRGB888 || img.Format == FormatBGR888:
		ri, bi := 0, 2
		if img.Format == FormatBGR888 {
			ri, bi = 2, 0
		}
		out := image.NewRGBA(rect)
		for i := 0; i < w*h; i++ {
			px := data[3*i : 3*i+3]
			out.Pix[4*i] = px[ri]
			out.Pix[4*i+1] = px[1]
			out.Pix[4*i+2] = px[bi]
			out.Pix[4*i+3] = 0xff
		}
		return out, nil

	case img.Format == FormatRGB565:
		out := image.NewRGBA(rect)
		for i := 0; i < w*h; i++ {
			r, g, b := RGB565(uint16(data[2*i]) | uint16(data[2*i+1])<<8)
			out.Pix[4*i], out.Pix[4*i+1], out.Pix[4*i+2], out.Pix[4*i+3] = r, g, b, 0xff
		}
		return out, nil

	case img.Format == FormatYUV422:
		y0, u, y1, v, ok := YUVOrder(img.Pattern)
		if !ok || w%2 != 0 {
			return nil, fmt.Errorf("%w: YUV422 with pattern %s, width %d", ErrUnsupportedFormat, img.Pattern, w)
		}
		out := image.NewRGBA(rect)
		for i := 0; i < w*h/2; i++ {
			mp := data[4*i : 4*i+4]
			r, g, b := color.YCbCrToRGB(mp[y0], mp[u], mp[v])
			out.Pix[8*i], out.Pix[8*i+1], out.Pix[8*i+2], out.Pix[8*i+3] = r, g, b, 0xff
			r, g, b = color.YCbCrToRGB(mp[y1], mp[u], mp[v])
			out.Pix[8*i+4], out.Pix[8*i+5], out.Pix[8*i+6], out.Pix[8*i+7] = r, g, b, 0xff
		}
		return out, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, img.Format)
}

// FromImage writes src into the current view of dst, which must already
// have a buffer and the same dimensions. Supported destination formats are
// Gray8, RGB888 and BGR888.
func FromImage(dst *Image, src image.Image) error {
	data := dst.Data()
	if data == nil {
		return ErrNoBuffer
	}
	b := src.Bounds()
	w, h := int(dst.Width), int(dst.Height)
	if b.Dx() != w || b.Dy() != h {
		return fmt.Errorf("%w: source %dx%d, destination %dx%d", ErrInvalidSize, b.Dx(), b.Dy(), w, h)
	}

	switch dst.Format {
	case FormatGray8:
		if len(data) < w*h {
			return ErrCapacity
		}
		if g, ok := src.(*image.Gray); ok {
			for y := 0; y < h; y++ {
				copy(data[y*w:(y+1)*w], g.Pix[g.PixOffset(b.Min.X, b.Min.Y+y):])
			}
			return nil
		}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				data[y*w+x] = color.GrayModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.Gray).Y
			}
		}
		return nil

	case FormatRGB888, FormatBGR888:
		if len(data) < w*h*3 {
			return ErrCapacity
		}
		ri, bi := 0, 2
		if dst.Format == FormatBGR888 {
			ri, bi = 2, 0
		}
		rgba, fast := src.(*image.RGBA)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				var r, g, bl uint8
				if fast {
					p := rgba.PixOffset(b.Min.X+x, b.Min.Y+y)
					r, g, bl = rgba.Pix[p], rgba.Pix[p+1], rgba.Pix[p+2]
				} else {
					c := color.RGBAModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.RGBA)
					r, g, bl = c.R, c.G, c.B
				}
				px := data[3*(y*w+x):]
				px[ri], px[1], px[bi] = r, g, bl
			}
		}
		return nil
	}

	return fmt.Errorf("%w: %s", ErrUnsupportedFormat, dst.Format)
}

// RGB565 expands a 5-6-5 pixel to 8 bits per channel.
func RGB565(v uint16) (r, g, b uint8) {
	r5 := uint8(v >> 11 & 0x1f)
	g6 := uint8(v >> 5 & 0x3f)
	b5 := uint8(v & 0x1f)
	return r5<<3 | r5>>2, g6<<2 | g6>>4, b5<<3 | b5>>2
}
