package salt

import (
	"errors"
	"testing"
)

var testOwner = [20]byte{0xaa, 0xbb}

func TestBatchDisjointness(t *testing.T) {
	a, err := New(Config{Owner: testOwner, Lanes: 8})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	seen := make(map[uint64]bool)
	segment := a.Segment()
	var base uint64
	for i := 0; i < 10; i++ {
		batch, err := a.Next()
		if err != nil {
			t.Fatalf("Next() error: %v", err)
		}
		if batch.Segment != segment {
			t.Errorf("batch %d: segment changed without wrap", i)
		}
		if batch.Base != base {
			t.Errorf("batch %d: base = %d, want %d", i, batch.Base, base)
		}
		if batch.Lanes != 8 {
			t.Errorf("batch %d: lanes = %d, want 8", i, batch.Lanes)
		}
		for c := batch.Base; c < batch.Base+batch.Lanes; c++ {
			if seen[c] {
				t.Fatalf("counter %d issued twice", c)
			}
			seen[c] = true
		}
		base += 8
	}
	if a.Wraps() != 0 {
		t.Errorf("Wraps() = %d, want 0", a.Wraps())
	}
}

func TestWrapReseedsSegment(t *testing.T) {
	a, err := New(Config{Owner: testOwner, Lanes: 4, Limit: 10})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	first := a.Segment()

	for i := 0; i < 2; i++ {
		if _, err := a.Next(); err != nil {
			t.Fatalf("Next() error: %v", err)
		}
	}

	// only 2 of 10 counter values remain; the next batch must wrap
	batch, err := a.Next()
	if err != nil {
		t.Fatalf("Next() after wrap error: %v", err)
	}
	if batch.Base != 0 {
		t.Errorf("post-wrap base = %d, want 0", batch.Base)
	}
	if a.Wraps() != 1 {
		t.Errorf("Wraps() = %d, want 1", a.Wraps())
	}
	if batch.Segment == first {
		t.Error("segment not reseeded on wrap")
	}
}

func TestExhaustOnWrap(t *testing.T) {
	a, err := New(Config{Owner: testOwner, Lanes: 4, Limit: 10, ExhaustOnWrap: true})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := a.Next(); err != nil {
			t.Fatalf("Next() error: %v", err)
		}
	}
	if _, err := a.Next(); !errors.Is(err, ErrExhausted) {
		t.Errorf("Next() error = %v, want ErrExhausted", err)
	}
}

func TestBadConfig(t *testing.T) {
	if _, err := New(Config{Owner: testOwner, Lanes: 0}); err == nil {
		t.Error("New() with zero lanes should fail")
	}
	if _, err := New(Config{Owner: testOwner, Lanes: 16, Limit: 8}); err == nil {
		t.Error("New() with lanes exceeding limit should fail")
	}
}
