package address

import "testing"

func TestBytesRoundTrip(t *testing.T) {
	a := New(42, 9001)
	b := a.Bytes()
	got, err := FromBytes(b[:])
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if !got.Equal(a) {
		t.Fatalf("round trip mismatch: got %v, want %v", got, a)
	}
}

func TestFromBytesWrongLength(t *testing.T) {
	if _, err := FromBytes([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for short buffer")
	}
}

func TestLessOrdersByRawBytes(t *testing.T) {
	a := New(1, 0)
	b := New(2, 0)
	if !a.Less(b) {
		t.Fatalf("expected %v < %v", a, b)
	}
	if b.Less(a) {
		t.Fatalf("expected %v not < %v", b, a)
	}
	if a.Less(a) {
		t.Fatal("address must not be less than itself")
	}
}

func TestCanonicalForm(t *testing.T) {
	a := New(1, 0)
	if got, want := a.Canonical(), "1:0"; got != want {
		t.Fatalf("Canonical() = %q, want %q", got, want)
	}
}

func TestZero(t *testing.T) {
	if !Zero.IsZero() {
		t.Fatal("Zero should report IsZero")
	}
	if New(1, 0).IsZero() {
		t.Fatal("non-zero address reported as zero")
	}
}
