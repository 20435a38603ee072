package imagebuf

import (
	"fmt"
	"image/color"
)

// barColors are the eight SMPTE-style bars, left to right.
var barColors = [8]color.RGBA{
	{255, 255, 255, 255},
	{255, 255, 0, 255},
	{0, 255, 255, 255},
	{0, 255, 0, 255},
	{255, 0, 255, 255},
	{255, 0, 0, 255},
	{0, 0, 255, 255},
	{0, 0, 0, 255},
}

// bayerCell maps a pattern to the positions of R and B within a 2x2 cell,
// numbered row-major from the top-left.
var bayerCell = map[Pattern][2]int{
	PatternRGGB: {0, 3},
	PatternGRBG: {1, 2},
	PatternBGGR: {3, 0},
	PatternGBRG: {2, 1},
}

func barAt(x, w int) color.RGBA {
	return barColors[min(x*len(barColors)/max(w, 1), len(barColors)-1)]
}

// ColorBars fills every frame of img with vertical color bars. Frame n is
// shifted right by n bars so frames of a multi-frame image differ.
func ColorBars(img *Image) error {
	if img.buf == nil {
		return ErrNoBuffer
	}
	w, h := int(img.Width), int(img.Height)
	if w == 0 || h == 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, w, h)
	}

	for n := 0; n < img.frames(); n++ {
		frame, err := img.Frame(n)
		if err != nil {
			return err
		}
		shift := n * w / len(barColors)
		if err := fillBars(img, frame, w, h, shift); err != nil {
			return err
		}
	}
	return nil
}

func fillBars(img *Image, data []byte, w, h, shift int) error {
	at := func(x int) color.RGBA { return barAt((x+w-shift%w)%w, w) }

	switch {
	case img.Format == FormatGray8:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				data[y*w+x] = color.GrayModel.Convert(at(x)).(color.Gray).Y
			}
		}

	case img.Format.IsGray16():
		bits := min(max(img.OriginalBit, 8), 16)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				v := uint16(color.GrayModel.Convert(at(x)).(color.Gray).Y) << (bits - 8)
				data[2*(y*w+x)], data[2*(y*w+x)+1] = byte(v), byte(v>>8)
			}
		}

	case img.Format == FormatRGB888 || img.Format == FormatBGR888:
		ri, bi := 0, 2
		if img.Format == FormatBGR888 {
			ri, bi = 2, 0
		}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c, px := at(x), data[3*(y*w+x):]
				px[ri], px[1], px[bi] = c.R, c.G, c.B
			}
		}

	case img.Format == FormatRGB565:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := at(x)
				v := uint16(c.R>>3)<<11 | uint16(c.G>>2)<<5 | uint16(c.B>>3)
				data[2*(y*w+x)], data[2*(y*w+x)+1] = byte(v), byte(v>>8)
			}
		}

	case img.Format == FormatYUV422:
		y0, u, y1, v, ok := YUVOrder(img.Pattern)
		if !ok || w%2 != 0 {
			return fmt.Errorf("%w: YUV422 with pattern %s, width %d", ErrUnsupportedFormat, img.Pattern, w)
		}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x += 2 {
				c := at(x)
				yy, cb, cr := color.RGBToYCbCr(c.R, c.G, c.B)
				mp := data[2*(y*w+x):]
				mp[y0], mp[y1], mp[u], mp[v] = yy, yy, cb, cr
			}
		}

	case img.Format.IsBayer():
		cell, ok := bayerCell[img.Pattern]
		if !ok {
			return fmt.Errorf("%w: Bayer with pattern %s", ErrUnsupportedFormat, img.Pattern)
		}
		wide := img.Format != FormatBayer8
		bits := min(max(img.OriginalBit, 8), 16)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := at(x)
				s := c.G
				switch (y%2)*2 + x%2 {
				case cell[0]:
					s = c.R
				case cell[1]:
					s = c.B
				}
				if !wide {
					data[y*w+x] = s
					continue
				}
				v := uint16(s) << (bits - 8)
				data[2*(y*w+x)], data[2*(y*w+x)+1] = byte(v), byte(v>>8)
			}
		}

	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, img.Format)
	}
	return nil
}
