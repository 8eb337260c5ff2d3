// Package anonpage implements vtx.PageAllocator over anonymous mmap
// regions. It is a reference/test implementation, not a production
// physical-frame allocator: acquiring real host-physical frames with a
// known address is a kernel-internal operation with no portable Go
// library binding, so this package's "physical address" is really just
// the host-virtual address mmap returned — adequate for driving the VMX
// core's bit-manipulation logic in tests, not for real VMXON/VMPTRLD
// against actual hardware.
package anonpage

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

const pageSize = 4096

// Allocator hands out page-aligned anonymous-mmap regions.
type Allocator struct {
	mu      sync.Mutex
	regions map[uintptr][]byte
}

// New returns an Allocator.
func New() *Allocator {
	return &Allocator{regions: make(map[uintptr][]byte)}
}

// AllocPage mmaps one page-sized, page-aligned anonymous region.
func (a *Allocator) AllocPage() (physAddr uintptr, virtAddr uintptr, err error) {
	// Over-allocate by one page so the mapping can be trimmed to a
	// page-aligned address without requesting a fixed address from the
	// kernel (MAP_FIXED with an unverified address is unsafe).
	buf, err := unix.Mmap(-1, 0, pageSize*2, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return 0, 0, fmt.Errorf("anonpage: mmap: %w", err)
	}

	base := uintptr(unsafe.Pointer(&buf[0]))
	aligned := (base + pageSize - 1) &^ (pageSize - 1)

	a.mu.Lock()
	a.regions[aligned] = buf
	a.mu.Unlock()

	return aligned, aligned, nil
}

// FreePage unmaps the region backing virtAddr.
func (a *Allocator) FreePage(virtAddr uintptr) {
	a.mu.Lock()
	buf, ok := a.regions[virtAddr]
	delete(a.regions, virtAddr)
	a.mu.Unlock()

	if ok {
		_ = unix.Munmap(buf)
	}
}
