package imagebuf

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// File format constants. The magic is the ASCII bytes "CHSI" read as a
// big-endian word and stored little-endian like every other integer.
const (
	FileMagic   uint32 = 0x43485349
	FileVersion uint32 = 1

	// maxPayload bounds the pixel field. Scalar fields are at most 8 bytes.
	maxPayload = 1 << 32
	maxScalar  = 8
)

// Field tags of the persisted image.
const (
	tagWidth       uint32 = 1
	tagHeight      uint32 = 2
	tagEnabled     uint32 = 3
	tagCameraID    uint32 = 4
	tagFormat      uint32 = 5
	tagMemoryBit   uint32 = 6
	tagOriginalBit uint32 = 7
	tagPattern     uint32 = 8
	tagMemoryAlign uint32 = 9
	tagFrameSize   uint32 = 10
	tagFrameCount  uint32 = 11
	tagSelected    uint32 = 12
	tagOffset      uint32 = 13
	tagPixels      uint32 = 100
)

var (
	// ErrBadMagic is returned when a file does not start with FileMagic.
	ErrBadMagic = errors.New("not an image file (bad magic)")

	// ErrBadVersion is returned for an unsupported file version.
	ErrBadVersion = errors.New("unsupported image file version")

	// ErrTruncated is returned when the file ends inside a header or field.
	ErrTruncated = errors.New("truncated image file")

	// ErrCorrupt is returned when fields are present but inconsistent.
	ErrCorrupt = errors.New("corrupt image file")
)

// Save writes the image as header plus tagged fields. The pixel field is
// written only when the image has a buffer and holds every frame.
func (img *Image) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)
	le := binary.LittleEndian

	u32 := func(tag, v uint32) field {
		return field{tag: tag, payload: le.AppendUint32(nil, v)}
	}
	u64 := func(tag uint32, v uint64) field {
		return field{tag: tag, payload: le.AppendUint64(nil, v)}
	}
	enabled := uint32(0)
	if img.Enabled {
		enabled = 1
	}

	fields := []field{
		u32(tagWidth, img.Width),
		u32(tagHeight, img.Height),
		u32(tagEnabled, enabled),
		u32(tagCameraID, img.CameraID),
		u32(tagFormat, uint32(img.Format)),
		u32(tagMemoryBit, img.MemoryBit),
		u32(tagOriginalBit, img.OriginalBit),
		u32(tagPattern, uint32(img.Pattern)),
		u32(tagMemoryAlign, uint32(img.MemoryAlign)),
		u64(tagFrameSize, uint64(img.frameSize)),
		u32(tagFrameCount, uint32(img.frames())),
		u32(tagSelected, uint32(img.selected)),
		u64(tagOffset, uint64(img.offset)),
	}
	if img.buf != nil {
		total := img.TotalBytes()
		if total > img.capacity {
			return fmt.Errorf("%w: %d bytes declared, %d allocated", ErrCapacity, total, img.capacity)
		}
		fields = append(fields, field{tag: tagPixels, payload: img.buf.data[:total]})
	}

	var hdr [12]byte
	le.PutUint32(hdr[0:], FileMagic)
	le.PutUint32(hdr[4:], FileVersion)
	le.PutUint32(hdr[8:], uint32(len(fields)))
	if _, err := bw.Write(hdr[:]); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, f := range fields {
		var fh [12]byte
		le.PutUint32(fh[0:], f.tag)
		le.PutUint64(fh[4:], uint64(len(f.payload)))
		if _, err := bw.Write(fh[:]); err != nil {
			return fmt.Errorf("write field %d: %w", f.tag, err)
		}
		if _, err := bw.Write(f.payload); err != nil {
			return fmt.Errorf("write field %d: %w", f.tag, err)
		}
	}
	return bw.Flush()
}

// Load replaces img with the image read from r. A fresh buffer of
// FrameSize()*FrameCount() bytes is allocated for the pixel field. On error
// img is left unchanged.
func (img *Image) Load(r io.Reader) error {
	br := bufio.NewReader(r)
	le := binary.LittleEndian

	var hdr [12]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		return fmt.Errorf("%w: header: %v", ErrTruncated, err)
	}
	if m := le.Uint32(hdr[0:]); m != FileMagic {
		return fmt.Errorf("%w: 0x%08x", ErrBadMagic, m)
	}
	if v := le.Uint32(hdr[4:]); v != FileVersion {
		return fmt.Errorf("%w: %d", ErrBadVersion, v)
	}
	count := le.Uint32(hdr[8:])

	out := Image{}
	var pixels []byte
	var frameSize, selected, storedOffset uint64
	frameCount := uint64(1)
	hasOffset := false

	for i := uint32(0); i < count; i++ {
		var fh [12]byte
		if _, err := io.ReadFull(br, fh[:]); err != nil {
			return fmt.Errorf("%w: field %d header: %v", ErrTruncated, i, err)
		}
		tag := le.Uint32(fh[0:])
		length := le.Uint64(fh[4:])

		if tag == tagPixels {
			if length > maxPayload {
				return fmt.Errorf("%w: field %d length %d", ErrCorrupt, tag, length)
			}
			// Grow with the bytes actually present, not the declared length.
			var pb bytes.Buffer
			if n, err := io.CopyN(&pb, br, int64(length)); err != nil {
				return fmt.Errorf("%w: field %d payload: %d of %d bytes: %v", ErrTruncated, tag, n, length, err)
			}
			pixels = pb.Bytes()
			continue
		}
		if length > maxScalar {
			if knownTag(tag) || length > maxPayload {
				return fmt.Errorf("%w: field %d has %d-byte payload", ErrCorrupt, tag, length)
			}
			// Unknown tags are skipped for forward compatibility.
			if _, err := io.CopyN(io.Discard, br, int64(length)); err != nil {
				return fmt.Errorf("%w: field %d payload: %v", ErrTruncated, tag, err)
			}
			continue
		}

		var payload [maxScalar]byte
		if _, err := io.ReadFull(br, payload[:length]); err != nil {
			return fmt.Errorf("%w: field %d payload: %v", ErrTruncated, tag, err)
		}
		if !knownTag(tag) {
			continue
		}
		v, ok := decodeUint(payload[:length])
		if !ok {
			return fmt.Errorf("%w: field %d has %d-byte payload", ErrCorrupt, tag, length)
		}

		switch tag {
		case tagWidth:
			out.Width = uint32(v)
		case tagHeight:
			out.Height = uint32(v)
		case tagEnabled:
			out.Enabled = v != 0
		case tagCameraID:
			out.CameraID = uint32(v)
		case tagFormat:
			out.Format = Format(v)
		case tagMemoryBit:
			out.MemoryBit = uint32(v)
		case tagOriginalBit:
			out.OriginalBit = uint32(v)
		case tagPattern:
			out.Pattern = Pattern(v)
		case tagMemoryAlign:
			out.MemoryAlign = MemoryAlign(v)
		case tagFrameSize:
			frameSize = v
		case tagFrameCount:
			frameCount = v
		case tagSelected:
			selected = v
		case tagOffset:
			storedOffset = v
			hasOffset = true
		}
	}

	// Sizes are checked as unsigned values before any int conversion.
	if frameCount == 0 || frameCount > maxPayload {
		return fmt.Errorf("%w: frame count %d", ErrCorrupt, frameCount)
	}
	if frameSize > maxPayload/frameCount {
		return fmt.Errorf("%w: %d frames of %d bytes", ErrCorrupt, frameCount, frameSize)
	}
	if selected >= frameCount {
		return fmt.Errorf("%w: selected frame %d of %d", ErrCorrupt, selected, frameCount)
	}
	out.frameSize = int(frameSize)
	out.frameCount = int(frameCount)
	out.selected = int(selected)
	out.offset = out.selected * out.frameSize
	if hasOffset && storedOffset != uint64(out.offset) {
		return fmt.Errorf("%w: offset %d does not match frame %d", ErrCorrupt, storedOffset, out.selected)
	}

	if pixels != nil {
		total := frameSize * frameCount
		if total == 0 {
			return fmt.Errorf("%w: declared buffer of %d bytes", ErrCorrupt, total)
		}
		if got := uint64(len(pixels)); got != total {
			return fmt.Errorf("%w: %d pixel bytes for a %d-byte buffer", ErrCorrupt, got, total)
		}
		if err := out.Allocate(); err != nil {
			return fmt.Errorf("allocate: %w", err)
		}
		copy(out.buf.data, pixels)
	}

	*img = out
	return nil
}

// SaveFile writes the image to path, creating parent directories.
func (img *Image) SaveFile(path string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := img.Save(f); err != nil {
		f.Close()
		return fmt.Errorf("save %s: %w", path, err)
	}
	return f.Close()
}

// LoadFile reads an image written by SaveFile.
func (img *Image) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := img.Load(f); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ReadFile is a convenience wrapper returning a new image loaded from path.
func ReadFile(path string) (*Image, error) {
	img := &Image{}
	if err := img.LoadFile(path); err != nil {
		return nil, err
	}
	return img, nil
}

type field struct {
	tag     uint32
	payload []byte
}

func knownTag(tag uint32) bool {
	return tag >= tagWidth && tag <= tagOffset
}

func decodeUint(b []byte) (uint64, bool) {
	le := binary.LittleEndian
	switch len(b) {
	case 1:
		return uint64(b[0]), true
	case 2:
		return uint64(le.Uint16(b)), true
	case 4:
		return uint64(le.Uint32(b)), true
	case 8:
		return le.Uint64(b), true
	default:
		return 0, false
	}
}
