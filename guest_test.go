//go:build amd64

package vtx

import (
	"errors"
	"testing"
)

func TestGuestEnterRequiresCR3AndEntry(t *testing.T) {
	g := &Guest{
		exec:      fakePinnedExecutor{},
		addrSpace: fakeGuestAddressSpace{size: 1 << 32},
		sink:      &fakeByteSink{},
		rec:       &guestCpuRecord{},
	}

	if err := g.Enter(); !errors.Is(err, BadState) {
		t.Fatalf("Enter() before SetCR3/SetEntry = %v, want bad_state", err)
	}

	if err := g.SetCR3(0x1000); err != nil {
		t.Fatalf("SetCR3: %v", err)
	}
	if err := g.Enter(); !errors.Is(err, BadState) {
		t.Fatalf("Enter() before SetEntry = %v, want bad_state", err)
	}
}

func TestGuestSetCR3Validation(t *testing.T) {
	g := &Guest{addrSpace: fakeGuestAddressSpace{size: pageSize * 4}}

	if err := g.SetCR3(pageSize * 4); !errors.Is(err, InvalidArgs) {
		t.Fatalf("SetCR3 at address-space edge = %v, want invalid_args", err)
	}
	if err := g.SetCR3(pageSize); err != nil {
		t.Fatalf("SetCR3 within range: %v", err)
	}
}

func TestGuestSetEntryValidation(t *testing.T) {
	g := &Guest{addrSpace: fakeGuestAddressSpace{size: pageSize * 4}}

	if err := g.SetEntry(pageSize * 4); !errors.Is(err, InvalidArgs) {
		t.Fatalf("SetEntry at address-space size = %v, want invalid_args", err)
	}
	if err := g.SetEntry(pageSize); err != nil {
		t.Fatalf("SetEntry within range: %v", err)
	}
}
