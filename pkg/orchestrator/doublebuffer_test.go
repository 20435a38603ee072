package orchestrator

import (
	"testing"

	"github.com/user/framepipe/pkg/imagebuf"
)

func grayFrame(t *testing.T, v byte) *imagebuf.Image {
	t.Helper()
	img := newImage(t, 2, 2, imagebuf.FormatGray8)
	for i := range img.Data() {
		img.Data()[i] = v
	}
	return img
}

func TestDoubleBuffer_EmptyAcquire(t *testing.T) {
	b := newDoubleBuffer()
	if _, ok := b.acquire(0); ok {
		t.Error("expected nothing to acquire before the first publish")
	}
}

func TestDoubleBuffer_PublishAcquire(t *testing.T) {
	b := newDoubleBuffer()
	src := grayFrame(t, 7)
	if err := b.publish(src); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	src.Data()[0] = 99 // slot holds a copy

	s, ok := b.acquire(0)
	if !ok {
		t.Fatal("expected to acquire the published frame")
	}
	if s.seq != 1 {
		t.Errorf("expected seq 1, got %d", s.seq)
	}
	if got := s.img.Data()[0]; got != 7 {
		t.Errorf("expected copied value 7, got %d", got)
	}
	if s.img.SharesBuffer(src) {
		t.Error("slot must not alias the producer's buffer")
	}
	b.release(s)

	if _, ok := b.acquire(1); ok {
		t.Error("a frame must not be acquired twice")
	}
}

func TestDoubleBuffer_LatestWins(t *testing.T) {
	b := newDoubleBuffer()
	for v := byte(1); v <= 3; v++ {
		if err := b.publish(grayFrame(t, v)); err != nil {
			t.Fatalf("publish %d failed: %v", v, err)
		}
	}

	s, ok := b.acquire(0)
	if !ok {
		t.Fatal("expected to acquire")
	}
	defer b.release(s)
	if s.seq != 3 || s.img.Data()[0] != 3 {
		t.Errorf("expected latest frame (seq 3), got seq %d value %d", s.seq, s.img.Data()[0])
	}
}

func TestDoubleBuffer_PublishWhileReading(t *testing.T) {
	b := newDoubleBuffer()
	if err := b.publish(grayFrame(t, 1)); err != nil {
		t.Fatal(err)
	}
	reading, ok := b.acquire(0)
	if !ok {
		t.Fatal("expected to acquire")
	}

	// both land in the other slot while the first is being read
	for v := byte(2); v <= 3; v++ {
		if err := b.publish(grayFrame(t, v)); err != nil {
			t.Fatalf("publish %d failed: %v", v, err)
		}
	}
	if reading.img.Data()[0] != 1 {
		t.Errorf("slot under read was overwritten: %d", reading.img.Data()[0])
	}
	b.release(reading)

	s, ok := b.acquire(reading.seq)
	if !ok {
		t.Fatal("expected to acquire the newer frame")
	}
	defer b.release(s)
	if s == reading {
		t.Error("expected the other slot")
	}
	if s.seq != 3 || s.img.Data()[0] != 3 {
		t.Errorf("expected seq 3 value 3, got seq %d value %d", s.seq, s.img.Data()[0])
	}
}

func TestDoubleBuffer_ResizesSlot(t *testing.T) {
	b := newDoubleBuffer()
	if err := b.publish(grayFrame(t, 1)); err != nil {
		t.Fatal(err)
	}
	big := newImage(t, 8, 8, imagebuf.FormatRGB888)
	if err := b.publish(big); err != nil {
		t.Fatal(err)
	}
	if err := b.publish(grayFrame(t, 5)); err != nil {
		t.Fatal(err)
	}

	s, ok := b.acquire(0)
	if !ok {
		t.Fatal("expected to acquire")
	}
	defer b.release(s)
	if s.img.Width != 2 || s.img.Format != imagebuf.FormatGray8 || len(s.img.Data()) != 4 {
		t.Errorf("unexpected slot image %s with %d bytes", &s.img, len(s.img.Data()))
	}
}

func TestDoubleBuffer_SelectedFrameOnly(t *testing.T) {
	b := newDoubleBuffer()
	multi := newImage(t, 2, 2, imagebuf.FormatGray8, imagebuf.WithFrameCount(3))
	f2, err := multi.Frame(2)
	if err != nil {
		t.Fatal(err)
	}
	for i := range f2 {
		f2[i] = 42
	}
	if err := multi.Select(2); err != nil {
		t.Fatal(err)
	}

	if err := b.publish(multi); err != nil {
		t.Fatal(err)
	}
	s, ok := b.acquire(0)
	if !ok {
		t.Fatal("expected to acquire")
	}
	defer b.release(s)
	if s.img.FrameCount() != 1 || s.img.Data()[0] != 42 {
		t.Errorf("expected single frame holding the selected view, got %d frames value %d", s.img.FrameCount(), s.img.Data()[0])
	}
}
