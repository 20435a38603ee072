package imagebuf

import (
	"fmt"
	"strings"
)

// Format identifies the pixel format. The hundreds digit encodes the
// container family: 1xx are 8-bit, 2xx are 16-bit, 3xx are 24-bit.
type Format uint32

const (
	FormatBayer8 Format = 100
	FormatGray8  Format = 101

	FormatBayer10 Format = 200
	FormatBayer12 Format = 201
	FormatBayer14 Format = 202
	FormatBayer16 Format = 203
	FormatGray10  Format = 204
	FormatGray12  Format = 205
	FormatGray14  Format = 206
	FormatGray16  Format = 207
	FormatYUV422  Format = 208 // packed 4:2:2, 2 bytes per pixel
	FormatRGB565  Format = 209

	FormatYUV444 Format = 300
	FormatRGB888 Format = 301
	FormatBGR888 Format = 302
)

var formatNames = map[Format]string{
	FormatBayer8:  "Bayer8",
	FormatGray8:   "Gray8",
	FormatBayer10: "Bayer10",
	FormatBayer12: "Bayer12",
	FormatBayer14: "Bayer14",
	FormatBayer16: "Bayer16",
	FormatGray10:  "Gray10",
	FormatGray12:  "Gray12",
	FormatGray14:  "Gray14",
	FormatGray16:  "Gray16",
	FormatYUV422:  "YUV422",
	FormatRGB565:  "RGB565",
	FormatYUV444:  "YUV444",
	FormatRGB888:  "RGB888",
	FormatBGR888:  "BGR888",
}

// String returns the format name.
func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return fmt.Sprintf("Format(%d)", uint32(f))
}

// ParseFormat parses a format name such as "RGB888".
func ParseFormat(s string) (Format, bool) {
	for f, name := range formatNames {
		if strings.EqualFold(name, s) {
			return f, true
		}
	}
	return 0, false
}

// Family returns the container family (100, 200 or 300).
func (f Format) Family() uint32 {
	return uint32(f) / 100 * 100
}

// IsBayer reports whether the format is a Bayer mosaic.
func (f Format) IsBayer() bool {
	switch f {
	case FormatBayer8, FormatBayer10, FormatBayer12, FormatBayer14, FormatBayer16:
		return true
	}
	return false
}

// IsGray16 reports whether the format is a gray format in a 16-bit container.
func (f Format) IsGray16() bool {
	switch f {
	case FormatGray10, FormatGray12, FormatGray14, FormatGray16:
		return true
	}
	return false
}

// Pattern describes component order within a pixel or mosaic cell.
type Pattern uint32

const (
	PatternRGGB Pattern = 0
	PatternGRBG Pattern = 1
	PatternBGGR Pattern = 2
	PatternGBRG Pattern = 3

	PatternYUYV Pattern = 10
	PatternUYVY Pattern = 11
	PatternYVYU Pattern = 12
	PatternVYUY Pattern = 13

	PatternRGB Pattern = 20
	PatternBGR Pattern = 21
)

var patternNames = map[Pattern]string{
	PatternRGGB: "RGGB",
	PatternGRBG: "GRBG",
	PatternBGGR: "BGGR",
	PatternGBRG: "GBRG",
	PatternYUYV: "YUYV",
	PatternUYVY: "UYVY",
	PatternYVYU: "YVYU",
	PatternVYUY: "VYUY",
	PatternRGB:  "RGB",
	PatternBGR:  "BGR",
}

// String returns the pattern name.
func (p Pattern) String() string {
	if s, ok := patternNames[p]; ok {
		return s
	}
	return fmt.Sprintf("Pattern(%d)", uint32(p))
}

// ParsePattern parses a pattern name such as "UYVY".
func ParsePattern(s string) (Pattern, bool) {
	for p, name := range patternNames {
		if strings.EqualFold(name, s) {
			return p, true
		}
	}
	return 0, false
}

// MemoryAlign describes the plane layout of the buffer.
type MemoryAlign uint32

const (
	AlignPacked MemoryAlign = 0

	AlignYYYYUUUUVVVV MemoryAlign = 10
	AlignYYYYVVVVUUUU MemoryAlign = 11
	AlignUUUUVVVVYYYY MemoryAlign = 12
	AlignVVVVUUUUYYYY MemoryAlign = 13

	AlignRRRRGGGGBBBB MemoryAlign = 20
	AlignBBBBGGGGRRRR MemoryAlign = 21

	AlignYYYYUVUV MemoryAlign = 30
	AlignYYYYVUVU MemoryAlign = 31
)

// IsPlanar reports whether the alignment is one of the planar families.
func (a MemoryAlign) IsPlanar() bool {
	return a != AlignPacked
}

// bytesPerPixel is exact for known formats and 0 otherwise.
func bytesPerPixel(f Format) int {
	switch f.Family() {
	case 100:
		if f == FormatBayer8 || f == FormatGray8 {
			return 1
		}
	case 200:
		if f >= FormatBayer10 && f <= FormatRGB565 {
			return 2
		}
	case 300:
		if f >= FormatYUV444 && f <= FormatBGR888 {
			return 3
		}
	}
	return 0
}

func defaultMemoryBit(f Format) uint32 {
	switch f.Family() {
	case 200:
		return 16
	case 300:
		return 24
	default:
		return 8
	}
}

func defaultOriginalBit(f Format) uint32 {
	switch f {
	case FormatBayer10, FormatGray10:
		return 10
	case FormatBayer12, FormatGray12:
		return 12
	case FormatBayer14, FormatGray14:
		return 14
	case FormatBayer16, FormatGray16, FormatRGB565:
		return 16
	default:
		return 8
	}
}

func defaultPattern(f Format) Pattern {
	switch f {
	case FormatYUV422, FormatYUV444:
		return PatternYUYV
	case FormatRGB888, FormatRGB565:
		return PatternRGB
	case FormatBGR888:
		return PatternBGR
	default:
		return PatternRGGB
	}
}
