package gpio

import (
	"errors"
	"testing"
)

func TestFakeOutputEnableSet(t *testing.T) {
	f := NewFakeOutputEnable()

	if f.Enabled {
		t.Error("should be disabled initially")
	}

	if err := f.SetEnabled(true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.Enabled {
		t.Error("expected Enabled=true")
	}

	if err := f.SetEnabled(false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Enabled {
		t.Error("expected Enabled=false")
	}

	if len(f.History) != 2 || f.History[0] != true || f.History[1] != false {
		t.Errorf("history: got %v", f.History)
	}
}

func TestFakeOutputEnableError(t *testing.T) {
	f := NewFakeOutputEnable()
	f.SetError = errors.New("simulated error")

	err := f.SetEnabled(true)
	if err == nil {
		t.Fatal("expected error to be returned")
	}
	if err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}
	if f.Enabled || len(f.History) != 0 {
		t.Error("failed SetEnabled must not change state")
	}
}

func TestFakeOutputEnableClose(t *testing.T) {
	f := NewFakeOutputEnable()
	f.SetEnabled(true)

	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}
	if f.Enabled {
		t.Error("Close must disable outputs")
	}
}

func TestFakeOutputEnableReset(t *testing.T) {
	f := NewFakeOutputEnable()
	f.SetEnabled(true)
	f.Close()
	f.SetError = errors.New("error")

	f.Reset()

	if f.Enabled || f.Closed || f.SetError != nil || len(f.History) != 0 {
		t.Errorf("reset did not clear state: %+v", f)
	}
}

func TestFakeImplementsOutputEnable(t *testing.T) {
	var _ OutputEnable = NewFakeOutputEnable()
}
