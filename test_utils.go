package vtx

import (
	"os"
	"unsafe"
)

// isCI returns true if running in a CI environment. Tests that require
// real VMX hardware skip themselves when isCI is true.
func isCI() bool {
	return os.Getenv("CI") == "true" || os.Getenv("GITHUB_ACTIONS") == "true"
}

// fakePageAllocator backs PageAllocator with plain Go-heap-allocated,
// page-sized, page-aligned buffers. It never talks to real physical
// memory; "physical" addresses are synthesized so the bit-manipulation
// logic in page.go/vmxregion.go is testable without hardware.
type fakePageAllocator struct {
	next  uintptr
	pages map[uintptr][]byte
}

func newFakePageAllocator() *fakePageAllocator {
	return &fakePageAllocator{next: pageSize, pages: make(map[uintptr][]byte)}
}

func (f *fakePageAllocator) AllocPage() (uintptr, uintptr, error) {
	buf := make([]byte, pageSize+pageSize)
	virt := uintptr(unsafe.Pointer(&buf[0]))
	aligned := (virt + pageSize - 1) &^ (pageSize - 1)

	phys := f.next
	f.next += pageSize
	f.pages[aligned] = buf
	return phys, aligned, nil
}

func (f *fakePageAllocator) FreePage(virt uintptr) {
	delete(f.pages, virt)
}

// fakePinnedExecutor runs closures inline on the calling goroutine,
// without actually pinning to a logical CPU. Adequate for the parts of the
// VMX lifecycle that can be exercised in ordinary userspace tests (control
// negotiation, bitmap math); the ring-0-only parts (VMXON, Setup, Enter)
// need a real kernel-mode harness and are not exercised by this fake.
type fakePinnedExecutor struct{}

func (fakePinnedExecutor) RunOn(cpu int, fn func() error) error { return fn() }

// fakeGuestAddressSpace is a GuestAddressSpace test double.
type fakeGuestAddressSpace struct {
	size uint64
	pml4 uint64
}

func (f fakeGuestAddressSpace) Size() uint64         { return f.size }
func (f fakeGuestAddressSpace) Pml4PhysAddr() uint64 { return f.pml4 }

// fakeByteSink is a ByteSink test double that records every write.
type fakeByteSink struct {
	writes [][]byte
}

func (f *fakeByteSink) Write(p []byte) (int, error) {
	cp := append([]byte(nil), p...)
	f.writes = append(f.writes, cp)
	return len(p), nil
}
