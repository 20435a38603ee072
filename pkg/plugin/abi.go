package plugin

import (
	"runtime"
	"unsafe"

	"github.com/user/framepipe/pkg/imagebuf"
	"github.com/user/framepipe/pkg/pipeline"
)

// Exported symbol names. A plugin module exports both with C linkage:
//
//	int32_t framepipe_user_register(const framepipe_entry **entries, int32_t *count);
//	void    framepipe_user_unregister(void);
//
// The entry array must stay valid until unregister returns.
const (
	RegisterSymbol   = "framepipe_user_register"
	UnregisterSymbol = "framepipe_user_unregister"
)

// cEntry mirrors framepipe_entry:
//
//	typedef struct {
//	    int32_t     index;
//	    const char *name;
//	    int32_t   (*fn)(const framepipe_image *in, framepipe_image *out,
//	                    const void *p1, const void *p2);
//	} framepipe_entry;
type cEntry struct {
	Index int32
	Name  uintptr
	Fn    uintptr
}

// cImage mirrors framepipe_image. Data points at the current view.
type cImage struct {
	Width       uint32
	Height      uint32
	Enabled     uint32
	CameraID    uint32
	Format      uint32
	Pattern     uint32
	MemoryAlign uint32
	MemoryBit   uint32
	OriginalBit uint32
	FrameCount  uint32
	Selected    uint32
	_           uint32
	FrameSize   uint64
	Data        unsafe.Pointer
}

// cRect mirrors the region parameter block {x0, y0, x1, y1}.
type cRect struct {
	X0, Y0, X1, Y1 int32
}

// maxNameLen bounds the scan for a C string terminator.
const maxNameLen = 256

// goString copies a NUL-terminated C string.
func goString(p uintptr) string {
	if p == 0 {
		return ""
	}
	base := unsafe.Pointer(p)
	n := 0
	for n < maxNameLen && *(*byte)(unsafe.Add(base, n)) != 0 {
		n++
	}
	return string(unsafe.Slice((*byte)(base), n))
}

// toC describes img for a native call, pinning its pixel buffer.
func toC(img *imagebuf.Image, pin *runtime.Pinner) *cImage {
	if img == nil {
		return nil
	}
	c := &cImage{
		Width:       img.Width,
		Height:      img.Height,
		CameraID:    img.CameraID,
		Format:      uint32(img.Format),
		Pattern:     uint32(img.Pattern),
		MemoryAlign: uint32(img.MemoryAlign),
		MemoryBit:   img.MemoryBit,
		OriginalBit: img.OriginalBit,
		FrameCount:  uint32(img.FrameCount()),
		Selected:    uint32(img.Selected()),
		FrameSize:   uint64(img.FrameSize()),
	}
	if img.Enabled {
		c.Enabled = 1
	}
	if data := img.Data(); len(data) > 0 {
		pin.Pin(&data[0])
		c.Data = unsafe.Pointer(&data[0])
	}
	pin.Pin(c)
	return c
}

// paramToC returns a pointer to the parameter block, or 0 for nil.
// IntParam is passed as int64, RectParam as cRect, BytesParam as its bytes.
func paramToC(p pipeline.Param, pin *runtime.Pinner) uintptr {
	switch v := p.(type) {
	case pipeline.IntParam:
		n := int64(v)
		pin.Pin(&n)
		return uintptr(unsafe.Pointer(&n))
	case pipeline.RectParam:
		r := &cRect{X0: int32(v.Min.X), Y0: int32(v.Min.Y), X1: int32(v.Max.X), Y1: int32(v.Max.Y)}
		pin.Pin(r)
		return uintptr(unsafe.Pointer(r))
	case pipeline.BytesParam:
		if len(v) == 0 {
			return 0
		}
		pin.Pin(&v[0])
		return uintptr(unsafe.Pointer(&v[0]))
	}
	return 0
}

func ptr(c *cImage) uintptr {
	return uintptr(unsafe.Pointer(c))
}
