package tinybasic

import (
	"reflect"
	"testing"
)

func TestProgramOrdering(t *testing.T) {
	p := NewProgram()
	p.Store(50, "E")
	p.Store(10, "A")
	p.Store(30, "C")
	p.Store(20, "B")
	p.Store(40, "D")

	if !reflect.DeepEqual(p.Numbers(), []int{10, 20, 30, 40, 50}) {
		t.Errorf("expected ascending numbers, got %v", p.Numbers())
	}
	if !reflect.DeepEqual(p.Statements(), []string{"A", "B", "C", "D", "E"}) {
		t.Errorf("expected statements in line order, got %v", p.Statements())
	}
}

func TestProgramOrdinalTracksEdits(t *testing.T) {
	p := NewProgram()
	p.Store(10, "A")
	p.Store(30, "C")

	if pos, ok := p.Ordinal(30); !ok || pos != 1 {
		t.Fatalf("expected 30 at ordinal 1, got %d (%v)", pos, ok)
	}

	p.Store(20, "B")
	if pos, ok := p.Ordinal(30); !ok || pos != 2 {
		t.Errorf("after inserting 20, expected 30 at ordinal 2, got %d (%v)", pos, ok)
	}
	if _, ok := p.Ordinal(25); ok {
		t.Errorf("expected 25 to be absent")
	}
}

func TestProgramOverwrite(t *testing.T) {
	p := NewProgram()
	p.Store(10, "old")
	p.Store(10, "new")
	if p.Len() != 1 {
		t.Errorf("expected 1 line, got %d", p.Len())
	}
	if text, ok := p.Text(10); !ok || text != "new" {
		t.Errorf("expected %q, got %q", "new", text)
	}
	if _, ok := p.Text(11); ok {
		t.Errorf("expected line 11 to be absent")
	}
}

func TestProgramSnapshotsAreCopies(t *testing.T) {
	p := NewProgram()
	p.Store(10, "A")
	numbers := p.Numbers()
	numbers[0] = 99
	if p.Numbers()[0] != 10 {
		t.Errorf("mutating a returned slice changed the program")
	}
}

func TestProgramEmpty(t *testing.T) {
	p := NewProgram()
	if len(p.Numbers()) != 0 || p.Len() != 0 {
		t.Errorf("expected empty program")
	}
	if _, ok := p.Ordinal(10); ok {
		t.Errorf("expected no ordinal in an empty program")
	}
}
