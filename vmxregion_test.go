package vtx

import "testing"

func newTestMsrBitmap(t *testing.T) *MsrBitmap {
	t.Helper()
	alloc := newFakePageAllocator()
	bm := &MsrBitmap{}
	if err := bm.Alloc(alloc, 0xff); err != nil {
		t.Fatalf("alloc bitmap: %v", err)
	}
	return bm
}

func TestMsrBitmapIgnoreIdempotent(t *testing.T) {
	bm := newTestMsrBitmap(t)
	bm.Ignore(0xC0000102) // KERNEL_GS_BASE

	once := append([]byte(nil), bm.Bytes()...)

	for i := 0; i < 5; i++ {
		bm.Ignore(0xC0000102)
	}
	if got := bm.Bytes(); string(got) != string(once) {
		t.Error("repeated Ignore calls mutated the bitmap beyond the first call")
	}
}

func TestMsrBitmapIgnoreKernelGSBase(t *testing.T) {
	bm := newTestMsrBitmap(t)
	before := make([]byte, pageSize)
	copy(before, bm.Bytes())

	bm.Ignore(0xC0000102)
	after := bm.Bytes()

	cleared := 0
	for i := range before {
		if before[i] != after[i] {
			cleared += popcount8(before[i] ^ after[i])
		}
	}
	if cleared != 4 {
		t.Errorf("Ignore(KERNEL_GS_BASE) cleared %d bits, want 4 (read-high + write-high)", cleared)
	}

	high, byteOff, bit := msrBitOffset(0xC0000102)
	if !high {
		t.Fatal("KERNEL_GS_BASE should fall in the high quadrant")
	}
	if after[msrBitmapReadHighOff+byteOff]&(1<<bit) != 0 {
		t.Error("read-high bit not cleared")
	}
	if after[msrBitmapWriteHighOff+byteOff]&(1<<bit) != 0 {
		t.Error("write-high bit not cleared")
	}
	if after[msrBitmapReadLowOff+byteOff]&(1<<bit) == 0 {
		t.Error("unrelated read-low bit was cleared")
	}
}

func popcount8(b byte) int {
	n := 0
	for b != 0 {
		n += int(b & 1)
		b >>= 1
	}
	return n
}

func TestMsrListEntryEdit(t *testing.T) {
	alloc := newFakePageAllocator()
	list := &MsrListEntry{}
	if err := list.Alloc(alloc, 0); err != nil {
		t.Fatalf("alloc list: %v", err)
	}

	list.Edit(0, 0xC0000102, 0x1122334455667788)

	b := list.Bytes()
	gotMsr := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	if gotMsr != 0xC0000102 {
		t.Errorf("msr index = 0x%x, want 0xC0000102", gotMsr)
	}
	if b[4] != 0 || b[5] != 0 || b[6] != 0 || b[7] != 0 {
		t.Error("reserved field not zero")
	}
	var gotVal uint64
	for i := 0; i < 8; i++ {
		gotVal |= uint64(b[8+i]) << (8 * i)
	}
	if gotVal != 0x1122334455667788 {
		t.Errorf("value = 0x%x, want 0x1122334455667788", gotVal)
	}
}

func TestMsrListEntryEditPanicsOutOfRange(t *testing.T) {
	alloc := newFakePageAllocator()
	list := &MsrListEntry{}
	if err := list.Alloc(alloc, 0); err != nil {
		t.Fatalf("alloc list: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("Edit(32, ...) should have panicked")
		}
	}()
	list.Edit(32, 0, 0)
}
