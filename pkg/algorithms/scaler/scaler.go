// Package scaler provides the built-in resampling algorithms of the Scaler
// module. The output image's dimensions are the target size.
package scaler

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/user/framepipe/pkg/imagebuf"
	"github.com/user/framepipe/pkg/pipeline"
)

// Algorithm indices inside the Scaler bucket.
const (
	Nearest = iota
	ApproxBiLinear
	BiLinear
	CatmullRom
)

var interpolators = []struct {
	name   string
	scaler draw.Scaler
}{
	Nearest:        {"Nearest neighbor", draw.NearestNeighbor},
	ApproxBiLinear: {"Approximate bilinear", draw.ApproxBiLinear},
	BiLinear:       {"Bilinear", draw.BiLinear},
	CatmullRom:     {"Catmull-Rom", draw.CatmullRom},
}

// Entries returns the scaler catalog.
func Entries() []pipeline.AlgEntry {
	entries := make([]pipeline.AlgEntry, 0, len(interpolators))
	for i, ip := range interpolators {
		entries = append(entries, pipeline.AlgEntry{
			Index: i,
			Func:  pipeline.FunctionEntry{Algorithm: New(ip.scaler), Name: ip.name},
		})
	}
	return entries
}

// New returns an Algorithm resampling with s.
//
// Input and output must share a format (Gray8, RGB888 or BGR888). An optional
// RectParam in p1 restricts the source to that region.
func New(s draw.Scaler) pipeline.Algorithm {
	return pipeline.AlgorithmFunc(func(in, out *imagebuf.Image, p1, _ pipeline.Param) pipeline.Status {
		return scale(s, in, out, p1)
	})
}

func scale(s draw.Scaler, in, out *imagebuf.Image, p1 pipeline.Param) pipeline.Status {
	if in == nil || out == nil || !in.HasBuffer() || !out.HasBuffer() {
		return pipeline.StatusNullImage
	}
	if in.Format != out.Format || !supported(in.Format) {
		return pipeline.StatusInvalidFormat
	}
	if in.Width == 0 || in.Height == 0 || out.Width == 0 || out.Height == 0 {
		return pipeline.StatusInvalidSize
	}

	src, err := imagebuf.ToImage(in)
	if err != nil {
		return pipeline.StatusInvalidSize
	}
	sr := src.Bounds()
	if r, ok := pipeline.RectValue(p1); ok {
		if r.Empty() || !r.In(sr) {
			return pipeline.StatusInvalidSize
		}
		sr = r
	}

	dr := image.Rect(0, 0, int(out.Width), int(out.Height))
	if out.Format == imagebuf.FormatGray8 {
		data := out.Data()
		if len(data) < dr.Dx()*dr.Dy() {
			return pipeline.StatusInvalidSize
		}
		dst := &image.Gray{Pix: data, Stride: dr.Dx(), Rect: dr}
		s.Scale(dst, dr, src, sr, draw.Src, nil)
	} else {
		dst := image.NewRGBA(dr)
		s.Scale(dst, dr, src, sr, draw.Src, nil)
		if err := imagebuf.FromImage(out, dst); err != nil {
			return pipeline.StatusInvalidSize
		}
	}

	out.CameraID = in.CameraID
	out.Enabled = in.Enabled
	return pipeline.StatusOK
}

func supported(f imagebuf.Format) bool {
	switch f {
	case imagebuf.FormatGray8, imagebuf.FormatRGB888, imagebuf.FormatBGR888:
		return true
	}
	return false
}
