/*
Copyright © 2025 kernelhive

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"context"
	"fmt"

	"github.com/kernelhive/vtx"
	"github.com/kernelhive/vtx/platform/anonpage"
	"github.com/kernelhive/vtx/platform/fifouart"
	"github.com/kernelhive/vtx/platform/pinexec"
	"github.com/spf13/cobra"
)

var (
	demoCPU      int
	demoEntry    uint64
	demoUartPath string
	demoTssSel   uint16
	demoTssBase  uint64
)

func init() {
	rootCmd.AddCommand(enterDemoCmd)
	enterDemoCmd.Flags().IntVar(&demoCPU, "cpu", 0, "logical CPU to run the guest on")
	enterDemoCmd.Flags().Uint64Var(&demoEntry, "entry", 0x1000, "guest entry RIP")
	enterDemoCmd.Flags().StringVar(&demoUartPath, "uart", "", "path to a FIFO for guest UART output (empty: discard)")
	enterDemoCmd.Flags().Uint16Var(&demoTssSel, "tss-selector", 0, "GDT selector of this CPU's TSS")
	enterDemoCmd.Flags().Uint64Var(&demoTssBase, "tss-base", 0, "host-virtual base address of this CPU's TSS")
}

var enterDemoCmd = &cobra.Command{
	Use:   "enter-demo",
	Short: "Create a host and guest, then run one VM-entry/VM-exit round trip",
	Long: `enter-demo brings up VMX on one CPU, builds a minimal guest, and enters
it once. It exists to exercise the full lifecycle end to end; it requires
VMX-capable hardware and ring-0 privilege, and will fail cleanly otherwise.`,
	RunE: runEnterDemo,
}

// demoAddressSpace is a placeholder GuestAddressSpace: one physical page
// standing in for a real EPT hierarchy. Building the actual page-table
// walk is outside this package's scope (spec: no memory-virtualization
// component), so a guest run through this command will typically take an
// EPT violation on its first instruction fetch rather than executing.
type demoAddressSpace struct {
	pml4  uintptr
	alloc *anonpage.Allocator
}

func newDemoAddressSpace(alloc *anonpage.Allocator) (*demoAddressSpace, func(), error) {
	phys, _, err := alloc.AllocPage()
	if err != nil {
		return nil, nil, fmt.Errorf("enter-demo: alloc PML4 page: %w", err)
	}
	as := &demoAddressSpace{pml4: phys, alloc: alloc}
	return as, func() { alloc.FreePage(phys) }, nil
}

func (d *demoAddressSpace) Size() uint64         { return 0x1000 }
func (d *demoAddressSpace) Pml4PhysAddr() uint64 { return uint64(d.pml4) }

// demoHostCpuState hands back a fixed TSS selector/base supplied on the
// command line: in a real deployment this comes from whatever host kernel
// owns the per-CPU TSS, which this CLI does not.
type demoHostCpuState struct {
	selector uint16
	base     uint64
}

func (d demoHostCpuState) TssSelector() uint16 { return d.selector }
func (d demoHostCpuState) TssBase() uint64     { return d.base }

func runEnterDemo(cmd *cobra.Command, args []string) error {
	ok, err := vtx.Supported()
	if err != nil {
		return fmt.Errorf("checking vmx support: %w", err)
	}
	if !ok {
		return fmt.Errorf("vmx is not supported or is locked out on this host")
	}

	exec := pinexec.New()
	alloc := anonpage.New()

	var sink vtx.ByteSink = discardSink{}
	if demoUartPath != "" {
		s, err := fifouart.Open(context.Background(), demoUartPath)
		if err != nil {
			return fmt.Errorf("opening uart fifo: %w", err)
		}
		defer s.Close()
		sink = s
	}

	addrSpace, releaseSpace, err := newDemoAddressSpace(alloc)
	if err != nil {
		return err
	}
	defer releaseSpace()

	host, err := vtx.CreateHost(exec, alloc, []int{demoCPU})
	if err != nil {
		return fmt.Errorf("create host: %w", err)
	}
	defer host.Close()

	hostCpu := demoHostCpuState{selector: demoTssSel, base: demoTssBase}
	guest, err := vtx.CreateGuest(exec, alloc, host.Capabilities(), hostCpu, addrSpace, sink, demoCPU)
	if err != nil {
		return fmt.Errorf("create guest: %w", err)
	}
	defer guest.Close()

	if err := guest.SetCR3(addrSpace.Pml4PhysAddr()); err != nil {
		return fmt.Errorf("set guest cr3: %w", err)
	}
	if err := guest.SetEntry(demoEntry); err != nil {
		return fmt.Errorf("set guest entry: %w", err)
	}

	if err := guest.Enter(); err != nil {
		return fmt.Errorf("enter guest: %w", err)
	}

	fmt.Println("guest entered and exited cleanly")
	return nil
}

type discardSink struct{}

func (discardSink) Write(p []byte) (int, error) { return len(p), nil }
