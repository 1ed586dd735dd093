package stream

import "github.com/jhol/cannelloni/pkg"

// =============================================================================
// Transfer Slots
// =============================================================================

// SlotState tracks where a slot is in its transfer lifecycle.
type SlotState int

// Slot lifecycle states.
const (
	SlotFree       SlotState = iota // idle, available for acquisition
	SlotSubmitted                   // transfer owned by the device
	SlotCompleting                  // completion being handled
)

// String returns the state name.
func (s SlotState) String() string {
	switch s {
	case SlotFree:
		return "free"
	case SlotSubmitted:
		return "submitted"
	case SlotCompleting:
		return "completing"
	}
	return "invalid"
}

// TransferSlot owns one transfer buffer for the life of the pool. The
// buffer is allocated once and reused across every resubmission; the
// engine's throughput depends on the hot path never allocating.
type TransferSlot struct {
	id     uint64
	buf    []byte
	state  SlotState
	length int // bytes in play for the current operation
}

// ID returns the stable identifier attached to the slot's submissions.
func (s *TransferSlot) ID() uint64 {
	return s.id
}

// Buffer returns the slot's buffer truncated to the current operation.
func (s *TransferSlot) Buffer() []byte {
	return s.buf[:s.length]
}

// SetLength bounds the buffer for the next operation.
func (s *TransferSlot) SetLength(n int) {
	s.length = n
}

// State returns the slot's lifecycle state.
func (s *TransferSlot) State() SlotState {
	return s.state
}

// =============================================================================
// Slot Pool
// =============================================================================

// Pool owns a fixed set of transfer slots, indexed by the stable slot ID
// carried on each submitted operation.
type Pool struct {
	slots     []TransferSlot
	submitted int
}

// NewPool allocates depth slots of blockSize bytes each.
func NewPool(depth, blockSize int) *Pool {
	p := &Pool{
		slots: make([]TransferSlot, depth),
	}
	for i := range p.slots {
		p.slots[i].id = uint64(i)
		p.slots[i].buf = make([]byte, blockSize)
	}
	return p
}

// Depth returns the pool's fixed slot count.
func (p *Pool) Depth() int {
	return len(p.slots)
}

// Submitted returns the number of slots currently owned by the device or
// having their completion handled. The engine runs while this is
// nonzero.
func (p *Pool) Submitted() int {
	return p.submitted
}

// Acquire returns a free slot, or nil when every slot is in flight. The
// failure is soft: the dispatcher just submits fewer transfers.
func (p *Pool) Acquire() *TransferSlot {
	for i := range p.slots {
		if p.slots[i].state == SlotFree {
			return &p.slots[i]
		}
	}
	return nil
}

// NoteSubmitted marks a slot as owned by the device. A completing slot
// moving back to submitted stays counted.
func (p *Pool) NoteSubmitted(s *TransferSlot) {
	if s.state == SlotFree {
		p.submitted++
	}
	s.state = SlotSubmitted
}

// BeginCompletion looks up the slot owning a reaped completion and moves
// it to the completing state.
func (p *Pool) BeginCompletion(id uint64) (*TransferSlot, error) {
	if id >= uint64(len(p.slots)) {
		return nil, pkg.ErrNotFound
	}
	s := &p.slots[id]
	if s.state != SlotSubmitted {
		return nil, pkg.ErrNotFound
	}
	s.state = SlotCompleting
	return s, nil
}

// Release returns a slot to the free state and drops it from the
// submitted count.
func (p *Pool) Release(s *TransferSlot) {
	if s.state != SlotFree {
		p.submitted--
	}
	s.state = SlotFree
	s.length = 0
}

// EachSubmitted invokes fn for every slot the device currently owns.
func (p *Pool) EachSubmitted(fn func(*TransferSlot)) {
	for i := range p.slots {
		if p.slots[i].state == SlotSubmitted {
			fn(&p.slots[i])
		}
	}
}
