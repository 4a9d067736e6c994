package ringbuffer

import "testing"

func TestWriteRead(t *testing.T) {
	rb := New(8)
	n := rb.Write([]byte{1, 2, 3})
	if n != 3 {
		t.Fatalf("wrote %d, want 3", n)
	}
	if rb.Len() != 3 {
		t.Fatalf("len %d, want 3", rb.Len())
	}
	out := make([]byte, 3)
	if got := rb.Advance(3, out); got != 3 {
		t.Fatalf("advanced %d, want 3", got)
	}
	if out[0] != 1 || out[1] != 2 || out[2] != 3 {
		t.Fatalf("unexpected bytes %v", out)
	}
	if rb.Len() != 0 {
		t.Fatalf("expected empty buffer, len=%d", rb.Len())
	}
}

func TestWriteStopsAtCapacity(t *testing.T) {
	rb := New(4) // holds at most 3 unread bytes
	n := rb.Write([]byte{1, 2, 3, 4, 5})
	if n != 3 {
		t.Fatalf("wrote %d, want 3 (capacity-1)", n)
	}
}

func TestPeekDoesNotConsume(t *testing.T) {
	rb := New(8)
	rb.Write([]byte{10, 20, 30})
	b, ok := rb.Peek(1)
	if !ok || b != 20 {
		t.Fatalf("peek(1) = %v, %v, want 20, true", b, ok)
	}
	if rb.Len() != 3 {
		t.Fatalf("peek should not consume, len=%d", rb.Len())
	}
}

func TestWrapAround(t *testing.T) {
	rb := New(4)
	rb.Write([]byte{1, 2, 3})
	rb.Advance(2, nil)
	rb.Write([]byte{4, 5})
	out := make([]byte, 3)
	n := rb.Advance(3, out)
	if n != 3 {
		t.Fatalf("advanced %d, want 3", n)
	}
	if out[0] != 3 || out[1] != 4 || out[2] != 5 {
		t.Fatalf("unexpected wraparound bytes %v", out)
	}
}
