// Package vtx implements the root/guest lifecycle of an x86-64 VMX
// kernel-mode hypervisor: probing hardware capability, negotiating VMCS
// control bits, programming host and guest VMCS state, and dispatching
// VM-exits for a single pinned logical CPU.
//
// # Requirements
//
//   - amd64 host with Intel VT-x (VMX) and EPT support
//   - kernel-mode privilege (ring 0); this package issues privileged
//     instructions (VMXON, VMPTRLD, VMLAUNCH, ...) and cannot run in a
//     hosted userspace process
//
// # Basic Usage
//
// Bring a logical CPU into VMX root operation:
//
//	root, err := vtx.CreateHost(executor, allocator, []int{0})
//	if err != nil {
//		log.Fatal("vtx: create host:", err)
//	}
//	defer root.Close()
//
// Build a guest on top of that host and run it:
//
//	guest, err := vtx.CreateGuest(executor, allocator, root.Capabilities(),
//		hostCpu, eptSpace, uartSink, 0)
//	if err != nil {
//		log.Fatal("vtx: create guest:", err)
//	}
//	defer guest.Close()
//
//	guest.SetCR3(guestCR3)
//	guest.SetEntry(guestEntryRIP)
//
//	for {
//		if err := guest.Enter(); err != nil {
//			log.Fatal("vtx: enter:", err)
//		}
//	}
//
// # Error Handling
//
// All errors are *vtx.Error values with one of five Kinds (NotSupported,
// BadState, NoMemory, InvalidArgs, Internal); see errors.go. Callers that
// need to branch on the kind use errors.Is against the exported sentinel
// Kind values, not string matching.
//
// # Resource Management
//
// VmxRoot and Guest are scoped resources: calling Close returns the
// owning CPU to its prior state; nothing is released automatically. Per-CPU records are
// never shared across CPUs and Enter never overlaps with itself on the
// same CPU, by construction of the per-CPU executor in percpu.go.
//
// # Platform Support
//
// amd64 only. On other architectures a build-tag-gated stub makes
// Supported report not_supported (see stubs.go); CreateHost, CreateGuest
// and the rest of the VMX lifecycle are not built there at all.
package vtx
