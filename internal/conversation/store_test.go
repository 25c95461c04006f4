package conversation

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestStore_AppendAssignsIdentity(t *testing.T) {
	s := NewStore()
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	snap, err := s.Append(UserMessage("Hello"))
	if err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	if snap.Version != 1 || snap.Len() != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}
	msg := snap.Messages[0]
	if msg.ID == "" {
		t.Error("ID should be assigned")
	}
	if !msg.CreatedAt.Equal(fixed) {
		t.Errorf("CreatedAt = %v", msg.CreatedAt)
	}
	if msg.Sender != SenderUser || msg.IsGenerating {
		t.Errorf("unexpected message %+v", msg)
	}

	kept := Message{ID: "given", Text: "x", CreatedAt: fixed.Add(time.Hour)}
	snap, _ = s.Append(kept)
	if last, _ := snap.Last(); last.ID != "given" || !last.CreatedAt.Equal(kept.CreatedAt) {
		t.Errorf("explicit identity should be kept, got %+v", last)
	}
}

func TestStore_ReplaceLastKeepsIdentity(t *testing.T) {
	s := NewStore()
	s.Append(UserMessage("Hello"))
	snap, _ := s.Append(AssistantMessage("", true))
	placeholder, _ := snap.Last()

	snap, err := s.ReplaceLast(AssistantMessage("Hi", true))
	if err != nil {
		t.Fatalf("ReplaceLast() error: %v", err)
	}
	last, _ := snap.Last()
	if last.ID != placeholder.ID || !last.CreatedAt.Equal(placeholder.CreatedAt) {
		t.Errorf("identity changed: %+v -> %+v", placeholder, last)
	}
	if last.Text != "Hi" || !last.IsGenerating {
		t.Errorf("last = %+v", last)
	}
	if snap.Len() != 2 || snap.Version != 3 {
		t.Errorf("Len = %d, Version = %d", snap.Len(), snap.Version)
	}
}

func TestStore_Errors(t *testing.T) {
	tests := []struct {
		name  string
		setup []Op
		op    Op
		want  error
	}{
		{
			name: "replace on empty store",
			op:   ReplaceLast{AssistantMessage("x", true)},
			want: ErrEmptyStore,
		},
		{
			name:  "replace finalized message",
			setup: []Op{Append{UserMessage("Hello")}},
			op:    ReplaceLast{UserMessage("Changed")},
			want:  ErrLastFinalized,
		},
		{
			name:  "replace after finalization",
			setup: []Op{Append{AssistantMessage("", true)}, ReplaceLast{AssistantMessage("done", false)}},
			op:    ReplaceLast{AssistantMessage("again", false)},
			want:  ErrLastFinalized,
		},
		{
			name:  "append while generating",
			setup: []Op{Append{AssistantMessage("", true)}},
			op:    Append{UserMessage("Hello")},
			want:  ErrGeneratingInProgress,
		},
		{
			name:  "replace changes sender",
			setup: []Op{Append{AssistantMessage("", true)}},
			op:    ReplaceLast{Message{Text: "x", Sender: SenderUser, IsGenerating: true}},
			want:  ErrSenderMismatch,
		},
		{
			name: "nil op",
			op:   nil,
			want: ErrUnknownOp,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			for _, op := range tt.setup {
				if _, err := s.Apply(op); err != nil {
					t.Fatalf("setup Apply(%T) error: %v", op, err)
				}
			}
			before := s.Snapshot()

			snap, err := s.Apply(tt.op)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Apply() error = %v, want %v", err, tt.want)
			}
			if snap.Version != before.Version || s.Version() != before.Version {
				t.Error("failed op should not change the store")
			}
		})
	}
}

func TestStore_SnapshotsAreStable(t *testing.T) {
	s := NewStore()
	s.Append(UserMessage("Hello"))
	s.Append(AssistantMessage("", true))

	old := s.Snapshot()
	s.ReplaceLast(AssistantMessage("Hi there", false))
	s.Append(UserMessage("Next"))

	if old.Len() != 2 {
		t.Errorf("old snapshot length changed to %d", old.Len())
	}
	if last, _ := old.Last(); last.Text != "" || !last.IsGenerating {
		t.Errorf("old snapshot changed: %+v", last)
	}

	msgs := s.Messages()
	msgs[0].Text = "mutated"
	if first := s.Snapshot().Messages[0]; first.Text != "Hello" {
		t.Error("Messages() should return a copy")
	}
}

func TestStore_InvariantHoldsThroughRounds(t *testing.T) {
	s := NewStore()
	ops := []Op{
		Append{UserMessage("Hello")},
		Append{AssistantMessage("", true)},
		ReplaceLast{AssistantMessage("Hi", true)},
		ReplaceLast{AssistantMessage("Hi there", true)},
		ReplaceLast{AssistantMessage("Hi there!", false)},
		Append{UserMessage("Again")},
		Append{AssistantMessage("", true)},
		ReplaceLast{AssistantMessage("error", false)},
	}

	for i, op := range ops {
		snap, err := s.Apply(op)
		if err != nil {
			t.Fatalf("op %d (%T) error: %v", i, op, err)
		}
		if err := CheckInvariant(snap.Messages); err != nil {
			t.Fatalf("after op %d: %v", i, err)
		}
	}

	if s.Len() != 4 || s.Generating() {
		t.Errorf("Len = %d, Generating = %v", s.Len(), s.Generating())
	}
}

func TestCheckInvariant(t *testing.T) {
	ok := []Message{UserMessage("a"), AssistantMessage("b", true)}
	if err := CheckInvariant(ok); err != nil {
		t.Errorf("CheckInvariant() = %v", err)
	}

	bad := []Message{AssistantMessage("a", true), UserMessage("b")}
	if err := CheckInvariant(bad); err == nil || !strings.Contains(err.Error(), "not last") {
		t.Errorf("CheckInvariant() = %v", err)
	}
}

func TestStore_ConcurrentReaders(t *testing.T) {
	s := NewStore()
	s.Append(UserMessage("Hello"))
	s.Append(AssistantMessage("", true))

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			prev := ""
			for {
				select {
				case <-done:
					return
				default:
				}
				snap := s.Snapshot()
				if err := CheckInvariant(snap.Messages); err != nil {
					t.Error(err)
					return
				}
				last, _ := snap.Last()
				if !strings.HasPrefix(last.Text, prev) {
					t.Errorf("text shrank from %q to %q", prev, last.Text)
					return
				}
				prev = last.Text
			}
		}()
	}

	acc := ""
	for i := 0; i < 200; i++ {
		acc += "x"
		if _, err := s.ReplaceLast(AssistantMessage(acc, true)); err != nil {
			t.Fatal(err)
		}
	}
	close(done)
	wg.Wait()
}

func TestSender_String(t *testing.T) {
	if SenderUser.String() != "user" || SenderAssistant.String() != "assistant" || Sender(9).String() != "unknown" {
		t.Error("unexpected sender names")
	}
}
