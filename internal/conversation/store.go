package conversation

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrEmptyStore is returned by ReplaceLast when there is nothing to replace
	ErrEmptyStore = errors.New("conversation is empty")
	// ErrLastFinalized is returned by ReplaceLast when the last message is final
	ErrLastFinalized = errors.New("last message is already finalized")
	// ErrGeneratingInProgress is returned by Append while the last message is generating
	ErrGeneratingInProgress = errors.New("a message is still generating")
	// ErrSenderMismatch is returned by ReplaceLast when the sender would change
	ErrSenderMismatch = errors.New("replacement changes the message sender")
	// ErrUnknownOp is returned for Op values the store does not understand
	ErrUnknownOp = errors.New("unknown store operation")
)

// Snapshot is an immutable view of the transcript at one version
type Snapshot struct {
	Version  uint64
	Messages []Message
}

// Len returns the number of messages
func (s Snapshot) Len() int {
	return len(s.Messages)
}

// Last returns the final message, if any
func (s Snapshot) Last() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// Generating reports whether the last message is still being generated
func (s Snapshot) Generating() bool {
	last, ok := s.Last()
	return ok && last.IsGenerating
}

// Store is an append-only transcript whose last message may be replaced
// while it is generating. Writers are serialized; readers load the current
// snapshot without locking and never observe a partially applied op.
type Store struct {
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
	now     func() time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	s := &Store{now: time.Now}
	s.current.Store(&Snapshot{})
	return s
}

// Apply validates op against the current transcript and publishes the result
// as a new snapshot. On error the store is unchanged.
func (s *Store) Apply(op Op) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current.Load()
	var next []Message

	switch o := op.(type) {
	case Append:
		if cur.Generating() {
			return *cur, ErrGeneratingInProgress
		}
		msg := o.Message
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = s.now()
		}
		next = make([]Message, len(cur.Messages), len(cur.Messages)+1)
		copy(next, cur.Messages)
		next = append(next, msg)

	case ReplaceLast:
		last, ok := cur.Last()
		if !ok {
			return *cur, ErrEmptyStore
		}
		if last.Final() {
			return *cur, ErrLastFinalized
		}
		if o.Message.Sender != last.Sender {
			return *cur, ErrSenderMismatch
		}
		msg := o.Message
		msg.ID = last.ID
		msg.CreatedAt = last.CreatedAt
		next = make([]Message, len(cur.Messages))
		copy(next, cur.Messages)
		next[len(next)-1] = msg

	default:
		return *cur, fmt.Errorf("%w: %T", ErrUnknownOp, op)
	}

	snap := &Snapshot{Version: cur.Version + 1, Messages: next}
	s.current.Store(snap)
	return *snap, nil
}

// Append is shorthand for Apply(Append{msg})
func (s *Store) Append(msg Message) (Snapshot, error) {
	return s.Apply(Append{Message: msg})
}

// ReplaceLast is shorthand for Apply(ReplaceLast{msg})
func (s *Store) ReplaceLast(msg Message) (Snapshot, error) {
	return s.Apply(ReplaceLast{Message: msg})
}

// Snapshot returns the current transcript. The returned slice is shared with
// the store and must not be modified.
func (s *Store) Snapshot() Snapshot {
	return *s.current.Load()
}

// Messages returns a copy of the current transcript
func (s *Store) Messages() []Message {
	snap := s.current.Load()
	out := make([]Message, len(snap.Messages))
	copy(out, snap.Messages)
	return out
}

// Len returns the number of messages
func (s *Store) Len() int {
	return s.current.Load().Len()
}

// Last returns the final message, if any
func (s *Store) Last() (Message, bool) {
	return s.current.Load().Last()
}

// Version returns the number of ops applied so far
func (s *Store) Version() uint64 {
	return s.current.Load().Version
}

// Generating reports whether the last message is still being generated
func (s *Store) Generating() bool {
	return s.current.Load().Generating()
}

// CheckInvariant reports an error if more than one message is generating or
// a generating message is not last.
func CheckInvariant(messages []Message) error {
	for i, m := range messages {
		if m.IsGenerating && i != len(messages)-1 {
			return fmt.Errorf("message %d (%s) is generating but not last", i, m.ID)
		}
	}
	return nil
}
