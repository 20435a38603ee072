// Package imagebuf provides the frame buffer type passed between pipeline
// stages: pixel bytes plus format and geometry metadata, with aliasing
// (shallow) and byte-copy (deep) semantics, multi-frame views and a tagged
// binary file format.
package imagebuf

import (
	"errors"
	"fmt"
)

var (
	// ErrNoBuffer is returned when an operation needs pixel bytes but the
	// image has no backing buffer.
	ErrNoBuffer = errors.New("image has no buffer")

	// ErrCapacity is returned when a destination cannot hold the source view.
	ErrCapacity = errors.New("insufficient buffer capacity")

	// ErrOutOfRange is returned for a frame index outside the allocation.
	ErrOutOfRange = errors.New("frame index out of range")

	// ErrInvalidArgument is returned for nil or empty required arguments.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidSize is returned when the per-frame size or frame count is zero
	// or inconsistent with the destination layout.
	ErrInvalidSize = errors.New("invalid image size")
)

// CopyMode selects what Copy transfers from the source image.
type CopyMode uint32

const (
	// CopyMetaOnly copies metadata and drops any buffer reference.
	CopyMetaOnly CopyMode = iota
	// CopyShallow shares the source buffer and view.
	CopyShallow
	// CopyDeep copies bytes of the source view into the existing destination buffer.
	CopyDeep
)

// String returns the copy mode name.
func (m CopyMode) String() string {
	switch m {
	case CopyMetaOnly:
		return "meta-only"
	case CopyShallow:
		return "shallow"
	case CopyDeep:
		return "deep"
	default:
		return fmt.Sprintf("CopyMode(%d)", uint32(m))
	}
}

// storage is the shared backing buffer. Shallow copies point at the same
// storage; it is reclaimed when the last image referencing it is dropped.
type storage struct {
	data     []byte
	external bool // caller-managed memory, never reallocated here
}

// Image is a single frame, or an array of equally sized frames, together
// with the metadata needed to interpret its bytes.
//
// The zero value is an empty, disabled Gray8 image with no buffer.
// Image performs no locking of pixel content; callers sharing a buffer
// through shallow copies must coordinate access themselves.
type Image struct {
	Width       uint32
	Height      uint32
	Enabled     bool
	CameraID    uint32
	Format      Format
	MemoryBit   uint32 // container bit depth
	OriginalBit uint32 // sensor bit depth
	Pattern     Pattern
	MemoryAlign MemoryAlign

	frameSize  int
	frameCount int
	selected   int
	offset     int
	capacity   int
	buf        *storage
}

// Option configures New.
type Option func(*options)

type options struct {
	frameCount int
	allocate   bool
	cameraID   uint32
	pattern    *Pattern
}

// WithFrameCount sets the number of frames held by the allocation.
func WithFrameCount(n int) Option {
	return func(o *options) { o.frameCount = n }
}

// WithoutBuffer creates the image with metadata only.
func WithoutBuffer() Option {
	return func(o *options) { o.allocate = false }
}

// WithCameraID sets the camera identifier.
func WithCameraID(id uint32) Option {
	return func(o *options) { o.cameraID = id }
}

// WithPattern overrides the format's default pattern.
func WithPattern(p Pattern) Option {
	return func(o *options) { o.pattern = &p }
}

// New creates an enabled image of the given geometry and format. Unless
// WithoutBuffer is passed, exactly FrameSize()*FrameCount() bytes are
// allocated.
func New(width, height uint32, format Format, opts ...Option) (*Image, error) {
	o := options{frameCount: 1, allocate: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.frameCount <= 0 {
		return nil, fmt.Errorf("%w: frame count %d", ErrInvalidSize, o.frameCount)
	}

	img := &Image{
		Width:       width,
		Height:      height,
		Enabled:     true,
		CameraID:    o.cameraID,
		Format:      format,
		MemoryBit:   defaultMemoryBit(format),
		OriginalBit: defaultOriginalBit(format),
		Pattern:     defaultPattern(format),
		MemoryAlign: AlignPacked,
		frameCount:  o.frameCount,
	}
	if o.pattern != nil {
		img.Pattern = *o.pattern
	}
	img.RecomputeSize()

	if o.allocate {
		if err := img.Allocate(); err != nil {
			return nil, err
		}
	}
	return img, nil
}

// FrameSize returns the byte size of one frame.
func (img *Image) FrameSize() int { return img.frameSize }

// FrameCount returns the number of frames in the allocation.
func (img *Image) FrameCount() int { return img.frames() }

// Selected returns the index of the frame the view points at.
func (img *Image) Selected() int { return img.selected }

// Offset returns the byte offset of the current view.
func (img *Image) Offset() int { return img.offset }

// Capacity returns the allocated byte capacity (0 without a buffer).
func (img *Image) Capacity() int { return img.capacity }

// HasBuffer reports whether the image references a backing buffer.
func (img *Image) HasBuffer() bool { return img.buf != nil }

// TotalBytes returns FrameSize()*FrameCount().
func (img *Image) TotalBytes() int { return img.frameSize * img.frames() }

// Writable returns the number of bytes from the current view to the end
// of the allocation.
func (img *Image) Writable() int {
	if img.buf == nil || img.capacity <= img.offset {
		return 0
	}
	return img.capacity - img.offset
}

// Data returns the bytes of the current view, or nil without a buffer.
// The slice aliases the backing buffer.
func (img *Image) Data() []byte {
	if img.buf == nil {
		return nil
	}
	end := img.offset + img.frameSize
	if end > img.capacity {
		end = img.capacity
	}
	return img.buf.data[img.offset:end:end]
}

// Frame returns the bytes of frame n regardless of the current selection.
func (img *Image) Frame(n int) ([]byte, error) {
	if img.buf == nil {
		return nil, ErrNoBuffer
	}
	if n < 0 || n >= img.frames() {
		return nil, fmt.Errorf("%w: %d of %d", ErrOutOfRange, n, img.frames())
	}
	start := n * img.frameSize
	end := start + img.frameSize
	if end > img.capacity {
		return nil, fmt.Errorf("%w: frame %d ends at %d, capacity %d", ErrCapacity, n, end, img.capacity)
	}
	return img.buf.data[start:end:end], nil
}

// Select moves the view to frame idx.
func (img *Image) Select(idx int) error {
	if idx < 0 || idx >= img.frames() {
		return fmt.Errorf("%w: %d of %d", ErrOutOfRange, idx, img.frames())
	}
	offset := idx * img.frameSize
	if img.buf != nil && offset+img.frameSize > img.capacity {
		return fmt.Errorf("%w: view %d+%d exceeds capacity %d", ErrOutOfRange, offset, img.frameSize, img.capacity)
	}
	img.selected = idx
	img.offset = offset
	return nil
}

// RecomputeSize derives the per-frame byte size from width, height and
// format. Unknown formats fall back to ceil(MemoryBit/8) bytes per pixel.
func (img *Image) RecomputeSize() {
	bpp := bytesPerPixel(img.Format)
	if bpp == 0 {
		bpp = int((img.MemoryBit + 7) / 8)
	}
	img.frameSize = int(img.Width) * int(img.Height) * bpp
	img.offset = img.selected * img.frameSize
}

// Allocate replaces the buffer reference with a fresh allocation of exactly
// TotalBytes(). Other images sharing the previous buffer keep it.
func (img *Image) Allocate() error {
	if img.frameSize == 0 {
		return fmt.Errorf("%w: frame size is zero", ErrInvalidSize)
	}
	img.frameCount = img.frames()
	total := img.TotalBytes()
	img.buf = &storage{data: make([]byte, total)}
	img.capacity = total
	if img.selected >= img.frames() {
		img.selected = 0
	}
	img.offset = img.selected * img.frameSize
	return nil
}

// Reserve turns img into a single-frame image whose buffer holds at least n
// bytes. An owned buffer that is already large enough is kept, so repeated
// calls with the same size never allocate.
func (img *Image) Reserve(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: reserve %d bytes", ErrInvalidSize, n)
	}
	img.frameCount = 1
	img.selected = 0
	img.offset = 0
	if img.buf != nil && !img.buf.external && img.capacity >= n {
		return nil
	}
	img.buf = &storage{data: make([]byte, n)}
	img.capacity = n
	return nil
}

// Reset drops the buffer reference, keeping metadata.
func (img *Image) Reset() {
	img.buf = nil
	img.capacity = 0
}

// AdoptExternal aliases caller-managed memory. The caller keeps ownership
// and must keep data valid for as long as any image references it.
func (img *Image) AdoptExternal(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: nil external buffer", ErrInvalidArgument)
	}
	if img.TotalBytes() > len(data) {
		return fmt.Errorf("%w: need %d bytes, external buffer has %d", ErrCapacity, img.TotalBytes(), len(data))
	}
	img.buf = &storage{data: data, external: true}
	img.capacity = len(data)
	img.offset = img.selected * img.frameSize
	return nil
}

// IsExternal reports whether the buffer was adopted from caller memory.
func (img *Image) IsExternal() bool {
	return img.buf != nil && img.buf.external
}

// SharesBuffer reports whether both images reference the same backing buffer.
func (img *Image) SharesBuffer(other *Image) bool {
	return img.buf != nil && other != nil && img.buf == other.buf
}

// Copy transfers src into img according to mode.
//
// CopyDeep never allocates: img must already hold a buffer with at least
// src.FrameSize() writable bytes from its current view, otherwise
// ErrCapacity is returned and img is left unchanged.
func (img *Image) Copy(src *Image, mode CopyMode) error {
	if src == nil {
		return fmt.Errorf("%w: nil source image", ErrInvalidArgument)
	}

	switch mode {
	case CopyMetaOnly:
		img.copyMeta(src)
		img.frameCount = src.frameCount
		img.selected = src.selected
		img.offset = src.selected * src.frameSize
		img.buf = nil
		img.capacity = 0
		return nil

	case CopyShallow:
		img.copyMeta(src)
		img.frameCount = src.frameCount
		img.selected = src.selected
		img.offset = src.offset
		img.buf = src.buf
		img.capacity = src.capacity
		return nil

	case CopyDeep:
		return img.deepCopy(src)

	default:
		return fmt.Errorf("%w: copy mode %d", ErrInvalidArgument, uint32(mode))
	}
}

// Shallow returns a new image sharing img's buffer and view.
func (img *Image) Shallow() *Image {
	out := &Image{}
	_ = out.Copy(img, CopyShallow)
	return out
}

func (img *Image) deepCopy(src *Image) error {
	if src.buf == nil {
		return fmt.Errorf("source: %w", ErrNoBuffer)
	}
	if img.buf == nil {
		return fmt.Errorf("%w: destination has no buffer", ErrCapacity)
	}
	need := len(src.Data())
	if img.Writable() < need {
		return fmt.Errorf("%w: need %d bytes, destination view has %d", ErrCapacity, need, img.Writable())
	}
	if img.frames() > 1 && img.frameSize != src.frameSize {
		return fmt.Errorf("%w: frame size %d into multi-frame destination of %d", ErrInvalidSize, src.frameSize, img.frameSize)
	}

	copy(img.buf.data[img.offset:], src.Data())
	img.copyMeta(src)
	return nil
}

func (img *Image) copyMeta(src *Image) {
	img.Width = src.Width
	img.Height = src.Height
	img.Enabled = src.Enabled
	img.CameraID = src.CameraID
	img.Format = src.Format
	img.MemoryBit = src.MemoryBit
	img.OriginalBit = src.OriginalBit
	img.Pattern = src.Pattern
	img.MemoryAlign = src.MemoryAlign
	img.frameSize = src.frameSize
}

func (img *Image) frames() int {
	if img.frameCount <= 0 {
		return 1
	}
	return img.frameCount
}

// String returns a short description for logs.
func (img *Image) String() string {
	return fmt.Sprintf("%dx%d %s/%s cam=%d frames=%d sel=%d", img.Width, img.Height, img.Format, img.Pattern, img.CameraID, img.frames(), img.selected)
}
