package plugin

import (
	"runtime"

	"github.com/user/framepipe/pkg/imagebuf"
	"github.com/user/framepipe/pkg/pipeline"
	"github.com/user/framepipe/pkg/ports"
)

// native is an algorithm implemented by a plugin function pointer.
type native struct {
	lib ports.DynamicLibrary
	fn  uintptr
}

func newNative(lib ports.DynamicLibrary, fn uintptr) pipeline.Algorithm {
	if fn == 0 {
		// keeps the key registered so dispatch reports NullFunction
		return pipeline.AlgorithmFunc(nil)
	}
	return &native{lib: lib, fn: fn}
}

// Invoke passes pinned descriptors of both images to the native function.
// Unknown result codes are reported as StatusInternal. The plugin may
// update the output's camera id and enabled flag.
func (n *native) Invoke(in, out *imagebuf.Image, p1, p2 pipeline.Param) pipeline.Status {
	var pin runtime.Pinner
	defer pin.Unpin()

	cIn := toC(in, &pin)
	cOut := toC(out, &pin)
	ret := n.lib.Call(n.fn, ptr(cIn), ptr(cOut), paramToC(p1, &pin), paramToC(p2, &pin))

	if out != nil && cOut != nil {
		out.CameraID = cOut.CameraID
		out.Enabled = cOut.Enabled != 0
	}

	status := pipeline.Status(int32(ret))
	if !status.Valid() {
		return pipeline.StatusInternal
	}
	return status
}
