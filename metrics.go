package vtx

import (
	"sync/atomic"
	"time"
)

// Package-wide performance counters, mirroring the shape of the teacher's
// metrics package but tracking VMX-specific events: host lifecycle
// transitions, guest Setup calls, Enter/exit counts, and launch failures.
var (
	hostCreateCount uint64
	hostCloseCount  uint64
	guestSetupCount uint64
	guestCloseCount uint64
	enterCount      uint64
	exitCount       uint64
	launchFailures  uint64

	totalEnterTimeNs uint64

	exitByReason [reasonCount]uint64
)

// Metrics is a point-in-time snapshot of package counters.
type Metrics struct {
	HostCreated      uint64           `json:"host_created"`
	HostClosed       uint64           `json:"host_closed"`
	GuestSetups      uint64           `json:"guest_setups"`
	GuestClosed      uint64           `json:"guest_closed"`
	Enters           uint64           `json:"enters"`
	Exits            uint64           `json:"exits"`
	LaunchFailures   uint64           `json:"launch_failures"`
	AvgEnterTimeNs   uint64           `json:"avg_enter_time_ns"`
	ExitsByReason    map[string]uint64 `json:"exits_by_reason"`
}

// GetMetrics returns the current counters.
func GetMetrics() Metrics {
	enters := atomic.LoadUint64(&enterCount)
	var avgEnter uint64
	if enters > 0 {
		avgEnter = atomic.LoadUint64(&totalEnterTimeNs) / enters
	}

	byReason := make(map[string]uint64, reasonCount)
	for r := ExitReason(0); r < reasonCount; r++ {
		if n := atomic.LoadUint64(&exitByReason[r]); n > 0 {
			byReason[r.String()] = n
		}
	}

	return Metrics{
		HostCreated:    atomic.LoadUint64(&hostCreateCount),
		HostClosed:     atomic.LoadUint64(&hostCloseCount),
		GuestSetups:    atomic.LoadUint64(&guestSetupCount),
		GuestClosed:    atomic.LoadUint64(&guestCloseCount),
		Enters:         enters,
		Exits:          atomic.LoadUint64(&exitCount),
		LaunchFailures: atomic.LoadUint64(&launchFailures),
		AvgEnterTimeNs: avgEnter,
		ExitsByReason:  byReason,
	}
}

// ResetMetrics clears all counters. Intended for tests.
func ResetMetrics() {
	atomic.StoreUint64(&hostCreateCount, 0)
	atomic.StoreUint64(&hostCloseCount, 0)
	atomic.StoreUint64(&guestSetupCount, 0)
	atomic.StoreUint64(&guestCloseCount, 0)
	atomic.StoreUint64(&enterCount, 0)
	atomic.StoreUint64(&exitCount, 0)
	atomic.StoreUint64(&launchFailures, 0)
	atomic.StoreUint64(&totalEnterTimeNs, 0)
	for r := range exitByReason {
		atomic.StoreUint64(&exitByReason[r], 0)
	}
}

func recordHostCreate() { atomic.AddUint64(&hostCreateCount, 1) }
func recordHostClose()  { atomic.AddUint64(&hostCloseCount, 1) }
func recordGuestSetup() { atomic.AddUint64(&guestSetupCount, 1) }
func recordGuestClose() { atomic.AddUint64(&guestCloseCount, 1) }

func recordEnter(d time.Duration) {
	atomic.AddUint64(&enterCount, 1)
	atomic.AddUint64(&totalEnterTimeNs, uint64(d.Nanoseconds()))
}

func recordExit(reason ExitReason) {
	atomic.AddUint64(&exitCount, 1)
	if reason.String() == "other" {
		reason = reasonOther
	}
	atomic.AddUint64(&exitByReason[reason], 1)
}

func recordLaunchFailure() { atomic.AddUint64(&launchFailures, 1) }
