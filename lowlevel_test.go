package vtx

import "testing"

func TestCrIsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		value  uint64
		fixed0 uint64
		fixed1 uint64
		want   bool
	}{
		{"required bits missing", 0, 0x21, 0xFFFFFFFF, true},
		{"required-zero bits present", 0xFFFFFFFF, 0, 0, true},
		{"valid", 0x21, 0x21, 0x21, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := crIsInvalid(tt.value, tt.fixed0, tt.fixed1); got != tt.want {
				t.Errorf("crIsInvalid(0x%x, 0x%x, 0x%x) = %v, want %v",
					tt.value, tt.fixed0, tt.fixed1, got, tt.want)
			}
		})
	}
}

func TestEptPointer(t *testing.T) {
	tests := []uint64{0, 0x1000, 0x7f8c00000000}
	for _, pml4 := range tests {
		got := eptPointer(pml4)
		want := pml4 | 0x58
		if got != want {
			t.Errorf("eptPointer(0x%x) = 0x%x, want 0x%x", pml4, got, want)
		}
	}
}
