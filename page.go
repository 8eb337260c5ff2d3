package vtx

import "unsafe"

const pageSize = 4096

// pageBytes views the page at virt as a byte slice without copying.
func pageBytes(virt uintptr) []byte {
	if virt == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(virt)), pageSize)
}

// PageAllocator is the external physical-frame allocator collaborator
// (spec §6): yields a page-sized physical frame with a known host-virtual
// mapping, and releases it. Out of scope for this package per the Purpose
// & Scope non-goals; a reference implementation lives in
// platform/anonpage.
type PageAllocator interface {
	// AllocPage returns the host-physical and host-virtual address of a
	// freshly allocated, page-aligned 4 KiB frame.
	AllocPage() (physAddr uintptr, virtAddr uintptr, err error)
	// FreePage releases a frame previously returned by AllocPage.
	FreePage(virtAddr uintptr)
}

// PhysicalPage owns exactly one page-aligned host-physical frame. Alloc
// transitions it from empty to allocated; Release returns the frame to
// the allocator. A zero-value PhysicalPage is the empty state.
type PhysicalPage struct {
	alloc PageAllocator
	phys  uintptr
	virt  uintptr
}

// Alloc acquires a frame from alloc and fills it with fill.
func (p *PhysicalPage) Alloc(alloc PageAllocator, fill byte) error {
	phys, virt, err := alloc.AllocPage()
	if err != nil {
		return wrapErr(KindNoMemory, "alloc_page", "physical page allocation failed", err)
	}
	if phys == 0 || phys%pageSize != 0 {
		alloc.FreePage(virt)
		return newErr(KindInternal, "alloc_page", "allocator returned a non-page-aligned address")
	}
	buf := pageBytes(virt)
	for i := range buf {
		buf[i] = fill
	}
	p.alloc = alloc
	p.phys = phys
	p.virt = virt
	return nil
}

// Release returns the frame to its allocator. A no-op on an empty page.
func (p *PhysicalPage) Release() {
	if p.virt == 0 {
		return
	}
	p.alloc.FreePage(p.virt)
	p.alloc = nil
	p.phys = 0
	p.virt = 0
}

// PhysAddr returns the page's host-physical address, or 0 if unallocated.
func (p *PhysicalPage) PhysAddr() uintptr { return p.phys }

// Bytes returns the page's host-virtual memory as a byte slice.
func (p *PhysicalPage) Bytes() []byte { return pageBytes(p.virt) }

// writeUint32LE stores a little-endian uint32 at byte offset off.
func (p *PhysicalPage) writeUint32LE(off int, v uint32) {
	b := p.Bytes()
	b[off+0] = byte(v)
	b[off+1] = byte(v >> 8)
	b[off+2] = byte(v >> 16)
	b[off+3] = byte(v >> 24)
}
