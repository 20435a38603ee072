package orchestrator

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/user/framepipe/pkg/imagebuf"
)

// Slot states. A slot is written only in slotWriting and read only in
// slotReading; the transitions are compare-and-swap from slotIdle.
const (
	slotIdle int32 = iota
	slotWriting
	slotReading
)

var errSlotsBusy = errors.New("both frame slots are busy")

type slot struct {
	state atomic.Int32
	seq   uint64 // publication number of the frame held; guarded by state
	img   imagebuf.Image
}

// doubleBuffer is the two-slot ingress handoff between producers and the
// worker. Producers must be serialized by the caller.
type doubleBuffer struct {
	slots  [2]slot
	active atomic.Int32 // last published slot, -1 before the first frame
	seq    uint64       // last publication number; producer side only
}

func newDoubleBuffer() *doubleBuffer {
	b := &doubleBuffer{}
	b.active.Store(-1)
	return b
}

// publish deep-copies the current view of frame into a slot that the
// worker is not reading and makes it the active slot. Normally that is the
// inactive slot; if the worker is still reading it, the unconsumed active
// frame is overwritten instead.
func (b *doubleBuffer) publish(frame *imagebuf.Image) error {
	act := b.active.Load()
	target := int32(0)
	if act >= 0 {
		target = 1 - act
	}
	s := &b.slots[target]
	if !s.state.CompareAndSwap(slotIdle, slotWriting) {
		if act < 0 {
			return errSlotsBusy
		}
		target = act
		s = &b.slots[target]
		if !s.state.CompareAndSwap(slotIdle, slotWriting) {
			return errSlotsBusy
		}
	}

	err := s.img.Reserve(len(frame.Data()))
	if err == nil {
		err = s.img.Copy(frame, imagebuf.CopyDeep)
	}
	if err != nil {
		s.state.Store(slotIdle)
		return fmt.Errorf("copy frame into slot %d: %w", target, err)
	}

	b.seq++
	s.seq = b.seq
	s.state.Store(slotIdle)
	b.active.Store(target)
	return nil
}

// acquire claims the active slot for reading. It fails when nothing has
// been published, when a producer is rewriting the slot, or when the slot
// holds a frame at or before lastSeq.
func (b *doubleBuffer) acquire(lastSeq uint64) (*slot, bool) {
	act := b.active.Load()
	if act < 0 {
		return nil, false
	}
	s := &b.slots[act]
	if !s.state.CompareAndSwap(slotIdle, slotReading) {
		return nil, false
	}
	if s.seq <= lastSeq {
		s.state.Store(slotIdle)
		return nil, false
	}
	return s, true
}

func (b *doubleBuffer) release(s *slot) {
	s.state.Store(slotIdle)
}
