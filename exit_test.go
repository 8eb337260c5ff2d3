package vtx

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecodeIoInfo(t *testing.T) {
	tests := []struct {
		name          string
		qualification uint64
		want          IoInfo
	}{
		{
			"1-byte output, string, not repeated",
			0x00000000003f8010,
			IoInfo{Bytes: 1, Input: false, String: true, Repeat: false, Port: 0x3f8},
		},
		{
			"1-byte output, non-string, not repeated",
			0x0000000003f80000,
			IoInfo{Bytes: 1, Input: false, String: false, Repeat: false, Port: 0x3f8},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeIoInfo(tt.qualification)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("decodeIoInfo(0x%x) mismatch (-want +got):\n%s", tt.qualification, diff)
			}
		})
	}
}

func TestExitReasonString(t *testing.T) {
	if ReasonCPUID.String() != "cpuid" {
		t.Errorf("ReasonCPUID.String() = %q, want %q", ReasonCPUID.String(), "cpuid")
	}
	if ExitReason(999).String() != "other" {
		t.Error("unknown reason should stringify to \"other\"")
	}
}
