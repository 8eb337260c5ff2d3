package vtx

// VmxRegion is the layout rule shared by the VMXON region and the VMCS
// region: the first 32-bit word must equal the hardware revision
// identifier reported by the capability probe. Both regions are a
// PhysicalPage carrying this one invariant.
type VmxRegion struct {
	PhysicalPage
}

// WriteRevisionID stamps the revision identifier at offset 0, as required
// before VMXON or VMPTRLD can use the region.
func (r *VmxRegion) WriteRevisionID(revision uint32) {
	r.writeUint32LE(0, revision)
}

// MsrBitmap is a PhysicalPage laid out as four 1024-byte quadrants:
// read-low, read-high, write-low, write-high. A cleared bit means "do not
// exit on this MSR access"; Setup fills the whole page with 0xff (exit on
// everything) before selectively clearing bits via Ignore.
type MsrBitmap struct {
	PhysicalPage
}

const (
	msrBitmapQuadrantSize = 1024
	msrBitmapReadLowOff   = 0 * msrBitmapQuadrantSize
	msrBitmapReadHighOff  = 1 * msrBitmapQuadrantSize
	msrBitmapWriteLowOff  = 2 * msrBitmapQuadrantSize
	msrBitmapWriteHighOff = 3 * msrBitmapQuadrantSize
)

// msrBitOffset computes, for a given MSR index, which quadrant pair
// (low/high) it falls in and the byte/bit offset within that quadrant.
// MSRs at or above 0xC0000000 (the "high" range, e.g. the extended/AMD
// range) use the high quadrant; everything else uses the low quadrant.
// Exactly the formula in spec.md §4.4.
func msrBitOffset(msr uint32) (highQuadrant bool, byteOff int, bit uint) {
	highQuadrant = msr >= 0xC0000000
	index := msr & 0x1fff
	return highQuadrant, int(index / 8), uint(index % 8)
}

// Ignore marks msr as non-exiting for both reads and writes: it clears one
// bit in the read bitmap and one in the write bitmap of the range (low or
// high) msr falls in. Idempotent: calling it repeatedly for the same msr
// leaves the bitmap unchanged after the first call, and it never touches
// bits for any other MSR.
func (m *MsrBitmap) Ignore(msr uint32) {
	high, byteOff, bit := msrBitOffset(msr)
	mask := ^byte(1 << bit)

	readBase := msrBitmapReadLowOff
	writeBase := msrBitmapWriteLowOff
	if high {
		readBase = msrBitmapReadHighOff
		writeBase = msrBitmapWriteHighOff
	}

	b := m.Bytes()
	b[readBase+byteOff] &= mask
	b[writeBase+byteOff] &= mask
}

// msrListEntrySize is sizeof(MsrListEntry): 4 (index) + 4 (reserved) + 8
// (value) = 16 bytes.
const msrListEntrySize = 16

// msrListMaxEntries is 512 / sizeof(entry) = 32. The backing page is 4096
// bytes, but the MSR-load/save lists this design uses are bounded to 32
// entries (the first 512 bytes), with the rest of the page left unused,
// matching the Testable Properties' "index >= 32 panics" rule.
const msrListMaxEntries = 32

// MsrListEntry is the packed {msr_index uint32, reserved uint32, value
// uint64} tuple the processor walks on VM-entry/exit to auto-load or save
// designated MSRs.
type MsrListEntry struct {
	PhysicalPage
}

// Edit writes entry i as {msr, 0, value} at byte offset 16*i. Panics if i
// is out of range, matching the Testable Properties' edit(list, i, ...)
// contract — callers are expected to have validated i against a known
// static count at setup time, so a panic here indicates a programming
// error, not a runtime condition to recover from.
func (l *MsrListEntry) Edit(i int, msr uint32, value uint64) {
	if i < 0 || i >= msrListMaxEntries {
		panic("vtx: MsrListEntry index out of range")
	}
	off := i * msrListEntrySize
	b := l.Bytes()
	b[off+0] = byte(msr)
	b[off+1] = byte(msr >> 8)
	b[off+2] = byte(msr >> 16)
	b[off+3] = byte(msr >> 24)
	b[off+4] = 0
	b[off+5] = 0
	b[off+6] = 0
	b[off+7] = 0
	for j := 0; j < 8; j++ {
		b[off+8+j] = byte(value >> (8 * j))
	}
}
