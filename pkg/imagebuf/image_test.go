package imagebuf

import (
	"bytes"
	"errors"
	"testing"
)

func mustNew(t *testing.T, w, h uint32, f Format, opts ...Option) *Image {
	t.Helper()
	img, err := New(w, h, f, opts...)
	if err != nil {
		t.Fatalf("New(%d, %d, %s) failed: %v", w, h, f, err)
	}
	return img
}

func fill(b []byte, start byte) {
	for i := range b {
		b[i] = start + byte(i)
	}
}

func TestNew_FrameSize(t *testing.T) {
	tests := []struct {
		format Format
		want   int
	}{
		{FormatGray8, 16},
		{FormatBayer8, 16},
		{FormatBayer12, 32},
		{FormatYUV422, 32},
		{FormatRGB565, 32},
		{FormatRGB888, 48},
		{FormatBGR888, 48},
	}

	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			img := mustNew(t, 4, 4, tt.format)
			if img.FrameSize() != tt.want {
				t.Errorf("expected frame size %d, got %d", tt.want, img.FrameSize())
			}
			if img.Capacity() != tt.want {
				t.Errorf("expected capacity %d, got %d", tt.want, img.Capacity())
			}
			if len(img.Data()) != tt.want {
				t.Errorf("expected %d data bytes, got %d", tt.want, len(img.Data()))
			}
		})
	}
}

func TestNew_UnknownFormatFallsBackToMemoryBit(t *testing.T) {
	img := mustNew(t, 2, 2, Format(999), WithoutBuffer())
	img.MemoryBit = 12
	img.RecomputeSize()

	// ceil(12/8) = 2 bytes per pixel
	if img.FrameSize() != 8 {
		t.Errorf("expected frame size 8, got %d", img.FrameSize())
	}
}

func TestNew_Defaults(t *testing.T) {
	img := mustNew(t, 2, 2, FormatBayer10)

	if img.MemoryBit != 16 {
		t.Errorf("expected 16-bit container, got %d", img.MemoryBit)
	}
	if img.OriginalBit != 10 {
		t.Errorf("expected 10-bit original depth, got %d", img.OriginalBit)
	}
	if img.Pattern != PatternRGGB {
		t.Errorf("expected RGGB, got %s", img.Pattern)
	}
	if !img.Enabled {
		t.Error("expected image to be enabled")
	}
}

func TestNew_InvalidSize(t *testing.T) {
	if _, err := New(0, 4, FormatGray8); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("expected ErrInvalidSize, got %v", err)
	}
	if _, err := New(4, 4, FormatGray8, WithFrameCount(0)); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("expected ErrInvalidSize for zero frames, got %v", err)
	}
}

func TestImage_ZeroValue(t *testing.T) {
	var img Image

	if img.Data() != nil {
		t.Error("expected nil data for empty image")
	}
	if img.FrameCount() != 1 {
		t.Errorf("expected 1 frame, got %d", img.FrameCount())
	}
	if err := img.Allocate(); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("expected ErrInvalidSize, got %v", err)
	}
}

func TestImage_Select(t *testing.T) {
	img := mustNew(t, 2, 2, FormatGray8, WithFrameCount(3))

	if img.TotalBytes() != 12 {
		t.Fatalf("expected 12 total bytes, got %d", img.TotalBytes())
	}

	if err := img.Select(2); err != nil {
		t.Fatalf("Select(2) failed: %v", err)
	}
	if img.Offset() != 8 {
		t.Errorf("expected offset 8, got %d", img.Offset())
	}

	img.Data()[0] = 0xAB
	frame, err := img.Frame(2)
	if err != nil {
		t.Fatalf("Frame(2) failed: %v", err)
	}
	if frame[0] != 0xAB {
		t.Errorf("expected view and frame 2 to alias")
	}

	if err := img.Select(3); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
	if err := img.Select(-1); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange for negative index, got %v", err)
	}
	if img.Selected() != 2 {
		t.Errorf("failed Select must not move the view, got %d", img.Selected())
	}
}

func TestCopy_ShallowAliases(t *testing.T) {
	src := mustNew(t, 4, 4, FormatGray8, WithCameraID(3))
	fill(src.Data(), 0)

	var dst Image
	if err := dst.Copy(src, CopyShallow); err != nil {
		t.Fatalf("shallow copy failed: %v", err)
	}

	if !dst.SharesBuffer(src) {
		t.Fatal("expected shallow copy to share the buffer")
	}
	if dst.CameraID != 3 {
		t.Errorf("expected camera id 3, got %d", dst.CameraID)
	}

	dst.Data()[5] = 0xEE
	if src.Data()[5] != 0xEE {
		t.Error("mutation through the shallow copy is not visible through the original")
	}

	src.Data()[6] = 0xDD
	if dst.Data()[6] != 0xDD {
		t.Error("mutation through the original is not visible through the shallow copy")
	}
}

func TestCopy_ShallowKeepsView(t *testing.T) {
	src := mustNew(t, 2, 2, FormatGray8, WithFrameCount(2))
	if err := src.Select(1); err != nil {
		t.Fatal(err)
	}

	dst := src.Shallow()
	if dst.Selected() != 1 || dst.Offset() != 4 {
		t.Errorf("expected view at frame 1 offset 4, got %d/%d", dst.Selected(), dst.Offset())
	}
}

func TestCopy_MetaOnlyDropsBuffer(t *testing.T) {
	src := mustNew(t, 4, 2, FormatRGB888)
	dst := mustNew(t, 1, 1, FormatGray8)

	if err := dst.Copy(src, CopyMetaOnly); err != nil {
		t.Fatalf("meta-only copy failed: %v", err)
	}

	if dst.HasBuffer() || dst.Data() != nil {
		t.Error("expected meta-only copy to drop the buffer")
	}
	if dst.Width != 4 || dst.Height != 2 || dst.Format != FormatRGB888 {
		t.Errorf("metadata not copied: %s", dst)
	}
	if dst.FrameSize() != src.FrameSize() {
		t.Errorf("expected frame size %d, got %d", src.FrameSize(), dst.FrameSize())
	}
}

func TestCopy_DeepExactSize(t *testing.T) {
	src := mustNew(t, 4, 4, FormatYUV422, WithPattern(PatternUYVY), WithCameraID(1))
	fill(src.Data(), 10)
	dst := mustNew(t, 4, 4, FormatYUV422)

	if err := dst.Copy(src, CopyDeep); err != nil {
		t.Fatalf("deep copy failed: %v", err)
	}

	if dst.SharesBuffer(src) {
		t.Error("deep copy must not share the buffer")
	}
	if !bytes.Equal(dst.Data(), src.Data()) {
		t.Error("expected byte-identical payload")
	}
	if dst.Pattern != PatternUYVY || dst.CameraID != 1 {
		t.Errorf("metadata not copied: %s", dst)
	}

	src.Data()[0] = 0
	if dst.Data()[0] == 0 {
		t.Error("deep copy still aliases source bytes")
	}
}

func TestCopy_DeepUndersized(t *testing.T) {
	src := mustNew(t, 4, 4, FormatRGB888)
	dst := mustNew(t, 2, 2, FormatRGB888)
	before := dst.String()

	err := dst.Copy(src, CopyDeep)
	if !errors.Is(err, ErrCapacity) {
		t.Fatalf("expected ErrCapacity, got %v", err)
	}
	if dst.String() != before {
		t.Error("failed deep copy modified the destination")
	}
}

func TestCopy_DeepNoDestinationBuffer(t *testing.T) {
	src := mustNew(t, 2, 2, FormatGray8)
	dst := mustNew(t, 2, 2, FormatGray8, WithoutBuffer())

	if err := dst.Copy(src, CopyDeep); !errors.Is(err, ErrCapacity) {
		t.Errorf("expected ErrCapacity, got %v", err)
	}
}

func TestCopy_DeepIntoSelectedFrame(t *testing.T) {
	src := mustNew(t, 2, 2, FormatGray8)
	fill(src.Data(), 1)
	dst := mustNew(t, 2, 2, FormatGray8, WithFrameCount(2))
	if err := dst.Select(1); err != nil {
		t.Fatal(err)
	}

	if err := dst.Copy(src, CopyDeep); err != nil {
		t.Fatalf("deep copy failed: %v", err)
	}

	first, _ := dst.Frame(0)
	second, _ := dst.Frame(1)
	if !bytes.Equal(first, []byte{0, 0, 0, 0}) {
		t.Errorf("frame 0 must be untouched, got %v", first)
	}
	if !bytes.Equal(second, []byte{1, 2, 3, 4}) {
		t.Errorf("frame 1 = %v, want [1 2 3 4]", second)
	}
}

func TestCopy_NilSource(t *testing.T) {
	var dst Image
	if err := dst.Copy(nil, CopyShallow); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestAdoptExternal(t *testing.T) {
	img := mustNew(t, 2, 2, FormatGray8, WithoutBuffer())

	if err := img.AdoptExternal(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
	if err := img.AdoptExternal(make([]byte, 3)); !errors.Is(err, ErrCapacity) {
		t.Errorf("expected ErrCapacity, got %v", err)
	}

	mem := []byte{1, 2, 3, 4}
	if err := img.AdoptExternal(mem); err != nil {
		t.Fatalf("AdoptExternal failed: %v", err)
	}
	if !img.IsExternal() {
		t.Error("expected external buffer")
	}

	img.Data()[0] = 9
	if mem[0] != 9 {
		t.Error("expected image to alias caller memory")
	}
}

func TestAllocate_ReplacesOnlyOwnReference(t *testing.T) {
	a := mustNew(t, 2, 2, FormatGray8)
	b := a.Shallow()

	if err := a.Allocate(); err != nil {
		t.Fatal(err)
	}
	if a.SharesBuffer(b) {
		t.Error("expected a fresh allocation")
	}
	if !b.HasBuffer() {
		t.Error("shallow copy lost its buffer")
	}
}

func TestReserve(t *testing.T) {
	img, err := New(4, 4, FormatGray8, WithFrameCount(3))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := img.Select(2); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	if err := img.Reserve(16); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if img.FrameCount() != 1 || img.Selected() != 0 || img.Offset() != 0 {
		t.Errorf("expected single frame view, got count=%d selected=%d offset=%d", img.FrameCount(), img.Selected(), img.Offset())
	}
	if img.Capacity() != 48 {
		t.Errorf("expected existing buffer kept (48 bytes), got %d", img.Capacity())
	}

	before := img.Shallow()
	if err := img.Reserve(100); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if img.Capacity() != 100 {
		t.Errorf("expected 100 byte buffer, got %d", img.Capacity())
	}
	if img.SharesBuffer(before) {
		t.Error("expected a new buffer after growing")
	}

	if err := img.Reserve(0); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("expected ErrInvalidSize, got %v", err)
	}
}

func TestReserve_ExternalReplaced(t *testing.T) {
	img, err := New(2, 2, FormatGray8, WithoutBuffer())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ext := make([]byte, 64)
	if err := img.AdoptExternal(ext); err != nil {
		t.Fatalf("AdoptExternal failed: %v", err)
	}
	if err := img.Reserve(4); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if img.IsExternal() {
		t.Error("expected owned buffer after Reserve")
	}
}
