package ports

import "github.com/user/framepipe/pkg/imagebuf"

// Displayer receives the output of each successful pipeline stage.
//
// Display is called on the pipeline worker goroutine. img is owned by the
// pipeline and is overwritten by the next frame, so implementations that
// keep pixels beyond the call must copy them.
type Displayer interface {
	Display(cameraID uint32, stage int, img *imagebuf.Image)
}

// DisplayCloser is a Displayer holding resources that must be released.
type DisplayCloser interface {
	Displayer
	Close() error
}
