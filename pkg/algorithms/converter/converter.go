// Package converter provides the built-in pixel format conversions of the
// Converter module (CPU serial backend).
//
// Every conversion writes into a caller-sized output of the target format
// and the same dimensions as the input; nothing is allocated.
package converter

import (
	"image/color"

	"github.com/user/framepipe/pkg/imagebuf"
	"github.com/user/framepipe/pkg/pipeline"
)

// Algorithm indices inside the Converter bucket.
const (
	YUV422ToRGB888 = iota
	YUV422ToBGR888
	SwapRGB
	Gray8ToRGB888
	RGB888ToGray8
	Bayer8ToRGB888
	RGB565ToRGB888
	Gray16ToGray8
)

// Entries returns the converter catalog.
func Entries() []pipeline.AlgEntry {
	return []pipeline.AlgEntry{
		entry(YUV422ToRGB888, "YUV422 to RGB888", yuvToRGB),
		entry(YUV422ToBGR888, "YUV422 to BGR888", yuvToBGR),
		entry(SwapRGB, "RGB888/BGR888 swap", swapRGB),
		entry(Gray8ToRGB888, "Gray8 to RGB888", grayToRGB),
		entry(RGB888ToGray8, "RGB888 to Gray8", rgbToGray),
		entry(Bayer8ToRGB888, "Bayer8 to RGB888", bayerToRGB),
		entry(RGB565ToRGB888, "RGB565 to RGB888", rgb565ToRGB),
		entry(Gray16ToGray8, "Gray16 to Gray8", gray16ToGray8),
	}
}

func entry(index int, name string, fn pipeline.AlgorithmFunc) pipeline.AlgEntry {
	return pipeline.AlgEntry{Index: index, Func: pipeline.FunctionEntry{Algorithm: fn, Name: name}}
}

// check validates an input/output pair and returns the two views.
func check(in, out *imagebuf.Image, inOK func(imagebuf.Format) bool, outFormat imagebuf.Format) ([]byte, []byte, pipeline.Status) {
	if in == nil || out == nil {
		return nil, nil, pipeline.StatusNullImage
	}
	src, dst := in.Data(), out.Data()
	if src == nil || dst == nil {
		return nil, nil, pipeline.StatusNullImage
	}
	if !inOK(in.Format) || out.Format != outFormat {
		return nil, nil, pipeline.StatusInvalidFormat
	}
	if in.Width != out.Width || in.Height != out.Height || in.Width == 0 || in.Height == 0 {
		return nil, nil, pipeline.StatusInvalidSize
	}
	if len(src) < in.FrameSize() || len(dst) < out.FrameSize() {
		return nil, nil, pipeline.StatusInvalidSize
	}
	return src, dst, pipeline.StatusOK
}

func is(f imagebuf.Format) func(imagebuf.Format) bool {
	return func(g imagebuf.Format) bool { return f == g }
}

func finish(in, out *imagebuf.Image) pipeline.Status {
	out.CameraID = in.CameraID
	out.Enabled = in.Enabled
	return pipeline.StatusOK
}

func yuvToRGB(in, out *imagebuf.Image, _, _ pipeline.Param) pipeline.Status {
	return yuv422(in, out, imagebuf.FormatRGB888, 0, 2)
}

func yuvToBGR(in, out *imagebuf.Image, _, _ pipeline.Param) pipeline.Status {
	return yuv422(in, out, imagebuf.FormatBGR888, 2, 0)
}

// yuv422 converts packed 4:2:2 with BT.601 full-range coefficients.
func yuv422(in, out *imagebuf.Image, target imagebuf.Format, ri, bi int) pipeline.Status {
	src, dst, st := check(in, out, is(imagebuf.FormatYUV422), target)
	if st != pipeline.StatusOK {
		return st
	}
	y0, u, y1, v, ok := imagebuf.YUVOrder(in.Pattern)
	if !ok {
		return pipeline.StatusInvalidFormat
	}
	if in.Width%2 != 0 {
		return pipeline.StatusInvalidSize
	}

	pairs := int(in.Width) * int(in.Height) / 2
	for i := 0; i < pairs; i++ {
		mp := src[4*i : 4*i+4]
		px := dst[6*i : 6*i+6]
		r, g, b := color.YCbCrToRGB(mp[y0], mp[u], mp[v])
		px[ri], px[1], px[bi] = r, g, b
		r, g, b = color.YCbCrToRGB(mp[y1], mp[u], mp[v])
		px[3+ri], px[4], px[3+bi] = r, g, b
	}
	return finish(in, out)
}

func swapRGB(in, out *imagebuf.Image, _, _ pipeline.Param) pipeline.Status {
	if in == nil || out == nil {
		return pipeline.StatusNullImage
	}
	target := imagebuf.FormatBGR888
	if in.Format == imagebuf.FormatBGR888 {
		target = imagebuf.FormatRGB888
	}
	src, dst, st := check(in, out, isRGB, target)
	if st != pipeline.StatusOK {
		return st
	}
	n := int(in.Width) * int(in.Height)
	for i := 0; i < n; i++ {
		dst[3*i], dst[3*i+1], dst[3*i+2] = src[3*i+2], src[3*i+1], src[3*i]
	}
	return finish(in, out)
}

func isRGB(f imagebuf.Format) bool {
	return f == imagebuf.FormatRGB888 || f == imagebuf.FormatBGR888
}

func grayToRGB(in, out *imagebuf.Image, _, _ pipeline.Param) pipeline.Status {
	src, dst, st := check(in, out, is(imagebuf.FormatGray8), imagebuf.FormatRGB888)
	if st != pipeline.StatusOK {
		return st
	}
	n := int(in.Width) * int(in.Height)
	for i := 0; i < n; i++ {
		dst[3*i], dst[3*i+1], dst[3*i+2] = src[i], src[i], src[i]
	}
	return finish(in, out)
}

// rgbToGray accepts either channel order and uses the BT.601 luma weights
// of color.GrayModel.
func rgbToGray(in, out *imagebuf.Image, _, _ pipeline.Param) pipeline.Status {
	src, dst, st := check(in, out, isRGB, imagebuf.FormatGray8)
	if st != pipeline.StatusOK {
		return st
	}
	ri, bi := 0, 2
	if in.Format == imagebuf.FormatBGR888 {
		ri, bi = 2, 0
	}
	n := int(in.Width) * int(in.Height)
	for i := 0; i < n; i++ {
		px := src[3*i : 3*i+3]
		dst[i] = luma(px[ri], px[1], px[bi])
	}
	return finish(in, out)
}

func luma(r, g, b uint8) uint8 {
	return uint8((19595*uint32(r) + 38470*uint32(g) + 7471*uint32(b) + 1<<15) >> 16)
}

// bayerOffsets maps a Bayer pattern to the positions of R and B inside a
// 2x2 block laid out as [top-left, top-right, bottom-left, bottom-right].
var bayerOffsets = map[imagebuf.Pattern][2]int{
	imagebuf.PatternRGGB: {0, 3},
	imagebuf.PatternGRBG: {1, 2},
	imagebuf.PatternBGGR: {3, 0},
	imagebuf.PatternGBRG: {2, 1},
}

// bayerToRGB demosaics each 2x2 block into a single color shared by its
// four pixels. Both dimensions must be even.
func bayerToRGB(in, out *imagebuf.Image, _, _ pipeline.Param) pipeline.Status {
	src, dst, st := check(in, out, is(imagebuf.FormatBayer8), imagebuf.FormatRGB888)
	if st != pipeline.StatusOK {
		return st
	}
	rb, ok := bayerOffsets[in.Pattern]
	if !ok {
		return pipeline.StatusInvalidFormat
	}
	w, h := int(in.Width), int(in.Height)
	if w%2 != 0 || h%2 != 0 {
		return pipeline.StatusInvalidSize
	}

	for y := 0; y < h; y += 2 {
		for x := 0; x < w; x += 2 {
			pos := [4]int{y*w + x, y*w + x + 1, (y+1)*w + x, (y+1)*w + x + 1}
			var block [4]uint32
			for i, p := range pos {
				block[i] = uint32(src[p])
			}
			r := block[rb[0]]
			b := block[rb[1]]
			g := (block[0] + block[1] + block[2] + block[3] - r - b + 1) / 2
			for _, p := range pos {
				dst[3*p], dst[3*p+1], dst[3*p+2] = uint8(r), uint8(g), uint8(b)
			}
		}
	}
	return finish(in, out)
}

func rgb565ToRGB(in, out *imagebuf.Image, _, _ pipeline.Param) pipeline.Status {
	src, dst, st := check(in, out, is(imagebuf.FormatRGB565), imagebuf.FormatRGB888)
	if st != pipeline.StatusOK {
		return st
	}
	n := int(in.Width) * int(in.Height)
	for i := 0; i < n; i++ {
		dst[3*i], dst[3*i+1], dst[3*i+2] = imagebuf.RGB565(uint16(src[2*i]) | uint16(src[2*i+1])<<8)
	}
	return finish(in, out)
}

// gray16ToGray8 keeps the most significant 8 bits of the sensor depth.
func gray16ToGray8(in, out *imagebuf.Image, _, _ pipeline.Param) pipeline.Status {
	src, dst, st := check(in, out, imagebuf.Format.IsGray16, imagebuf.FormatGray8)
	if st != pipeline.StatusOK {
		return st
	}
	bits := in.OriginalBit
	if bits < 8 || bits > 16 {
		bits = 16
	}
	shift := bits - 8
	n := int(in.Width) * int(in.Height)
	for i := 0; i < n; i++ {
		v := uint32(src[2*i]) | uint32(src[2*i+1])<<8
		v >>= shift
		if v > 0xff {
			v = 0xff
		}
		dst[i] = uint8(v)
	}
	return finish(in, out)
}
