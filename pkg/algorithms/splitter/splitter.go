// Package splitter provides the built-in Splitter module: frame selection
// from multi-frame buffers, channel extraction and cropping.
package splitter

import (
	"image"

	"github.com/user/framepipe/pkg/imagebuf"
	"github.com/user/framepipe/pkg/pipeline"
)

// Algorithm indices inside the Splitter bucket.
const (
	SelectFrame = iota
	ExtractChannel
	Crop
)

// Entries returns the splitter catalog.
func Entries() []pipeline.AlgEntry {
	return []pipeline.AlgEntry{
		{Index: SelectFrame, Func: pipeline.FunctionEntry{Algorithm: pipeline.AlgorithmFunc(selectFrame), Name: "Select frame"}},
		{Index: ExtractChannel, Func: pipeline.FunctionEntry{Algorithm: pipeline.AlgorithmFunc(extractChannel), Name: "Extract channel"}},
		{Index: Crop, Func: pipeline.FunctionEntry{Algorithm: pipeline.AlgorithmFunc(crop), Name: "Crop"}},
	}
}

// selectFrame copies frame p1 (default: the input's selected frame) of a
// multi-frame input into out, which must have the same format and size.
func selectFrame(in, out *imagebuf.Image, p1, _ pipeline.Param) pipeline.Status {
	if in == nil || out == nil || !in.HasBuffer() || out.Data() == nil {
		return pipeline.StatusNullImage
	}
	if in.Format != out.Format {
		return pipeline.StatusInvalidFormat
	}
	if in.Width != out.Width || in.Height != out.Height {
		return pipeline.StatusInvalidSize
	}

	n := in.Selected()
	if v, ok := pipeline.IntValue(p1); ok {
		n = v
	}
	frame, err := in.Frame(n)
	if err != nil || len(out.Data()) < len(frame) {
		return pipeline.StatusInvalidSize
	}

	copy(out.Data(), frame)
	out.CameraID = in.CameraID
	out.Enabled = in.Enabled
	out.Pattern = in.Pattern
	return pipeline.StatusOK
}

// extractChannel writes color channel p1 (0=R, 1=G, 2=B) of an RGB888 or
// BGR888 input into a Gray8 output of the same size.
func extractChannel(in, out *imagebuf.Image, p1, _ pipeline.Param) pipeline.Status {
	if in == nil || out == nil || in.Data() == nil || out.Data() == nil {
		return pipeline.StatusNullImage
	}
	if (in.Format != imagebuf.FormatRGB888 && in.Format != imagebuf.FormatBGR888) || out.Format != imagebuf.FormatGray8 {
		return pipeline.StatusInvalidFormat
	}
	if in.Width != out.Width || in.Height != out.Height {
		return pipeline.StatusInvalidSize
	}

	ch, _ := pipeline.IntValue(p1)
	if ch < 0 || ch > 2 {
		return pipeline.StatusInvalidSize
	}
	if in.Format == imagebuf.FormatBGR888 {
		ch = 2 - ch
	}

	src, dst := in.Data(), out.Data()
	n := int(in.Width) * int(in.Height)
	if len(src) < 3*n || len(dst) < n {
		return pipeline.StatusInvalidSize
	}
	for i := 0; i < n; i++ {
		dst[i] = src[3*i+ch]
	}
	out.CameraID = in.CameraID
	out.Enabled = in.Enabled
	return pipeline.StatusOK
}

// crop copies the p1 rectangle of the input into out, whose dimensions must
// equal the rectangle size. Packed YUV422 crops must start and end on a
// macropixel boundary.
func crop(in, out *imagebuf.Image, p1, _ pipeline.Param) pipeline.Status {
	if in == nil || out == nil || in.Data() == nil || out.Data() == nil {
		return pipeline.StatusNullImage
	}
	if in.Format != out.Format {
		return pipeline.StatusInvalidFormat
	}
	r, ok := pipeline.RectValue(p1)
	bounds := image.Rect(0, 0, int(in.Width), int(in.Height))
	if !ok || r.Empty() || !r.In(bounds) {
		return pipeline.StatusInvalidSize
	}
	if r.Dx() != int(out.Width) || r.Dy() != int(out.Height) {
		return pipeline.StatusInvalidSize
	}
	if in.Format == imagebuf.FormatYUV422 && (r.Min.X%2 != 0 || r.Dx()%2 != 0) {
		return pipeline.StatusInvalidSize
	}

	pixels := int(in.Width) * int(in.Height)
	if pixels == 0 || in.FrameSize()%pixels != 0 {
		return pipeline.StatusInvalidFormat
	}
	bpp := in.FrameSize() / pixels
	src, dst := in.Data(), out.Data()
	stride, row := int(in.Width)*bpp, r.Dx()*bpp
	if len(dst) < row*r.Dy() {
		return pipeline.StatusInvalidSize
	}

	for y := 0; y < r.Dy(); y++ {
		start := (r.Min.Y+y)*stride + r.Min.X*bpp
		copy(dst[y*row:(y+1)*row], src[start:start+row])
	}
	out.CameraID = in.CameraID
	out.Enabled = in.Enabled
	out.Pattern = in.Pattern
	return pipeline.StatusOK
}
