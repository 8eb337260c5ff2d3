package vtx

import "testing"

func TestMetricsResetAndRecord(t *testing.T) {
	ResetMetrics()

	m := GetMetrics()
	if m.HostCreated != 0 || m.Enters != 0 || m.Exits != 0 {
		t.Fatalf("expected zeroed metrics after reset, got %+v", m)
	}

	recordHostCreate()
	recordHostCreate()
	recordHostClose()
	recordGuestSetup()
	recordGuestClose()
	recordExit(ReasonCPUID)
	recordExit(ReasonCPUID)
	recordExit(ReasonIO)
	recordLaunchFailure()

	m = GetMetrics()
	if m.HostCreated != 2 {
		t.Errorf("HostCreated = %d, want 2", m.HostCreated)
	}
	if m.HostClosed != 1 {
		t.Errorf("HostClosed = %d, want 1", m.HostClosed)
	}
	if m.GuestSetups != 1 || m.GuestClosed != 1 {
		t.Errorf("GuestSetups/GuestClosed = %d/%d, want 1/1", m.GuestSetups, m.GuestClosed)
	}
	if m.Exits != 3 {
		t.Errorf("Exits = %d, want 3", m.Exits)
	}
	if m.LaunchFailures != 1 {
		t.Errorf("LaunchFailures = %d, want 1", m.LaunchFailures)
	}
	if m.ExitsByReason["cpuid"] != 2 {
		t.Errorf("ExitsByReason[cpuid] = %d, want 2", m.ExitsByReason["cpuid"])
	}
	if m.ExitsByReason["io_instruction"] != 1 {
		t.Errorf("ExitsByReason[io_instruction] = %d, want 1", m.ExitsByReason["io_instruction"])
	}

	ResetMetrics()
}

func TestMetricsAvgEnterTime(t *testing.T) {
	ResetMetrics()
	defer ResetMetrics()

	recordEnter(100)
	recordEnter(300)

	m := GetMetrics()
	if m.Enters != 2 {
		t.Fatalf("Enters = %d, want 2", m.Enters)
	}
	if m.AvgEnterTimeNs != 200 {
		t.Errorf("AvgEnterTimeNs = %d, want 200", m.AvgEnterTimeNs)
	}
}
