package cgroup

import "testing"

func TestClassifyPodBeforeQoS(t *testing.T) {
	// Pod names may contain QoS keywords; the pod test must win.
	cases := map[string]kind{
		"pod-burstable-1234":                        kindPod,
		"pod12345678_1234_1234_1234_123456789012":   kindPod,
		"kubepods-burstable-podabc.slice":           kindPod,
		"kubepods-besteffort-podxyz.slice":          kindPod,
		"kubepods-burstable.slice":                  kindQoS,
		"besteffort":                                kindQoS,
		"guaranteed":                                kindQoS,
		"burstable":                                 kindQoS,
		"system.slice":                              kindUnrecognized,
		"user.slice":                                kindUnrecognized,
		"cpu.stat":                                  kindUnrecognized,
	}
	for name, want := range cases {
		if got := classify(name); got != want {
			t.Fatalf("classify(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestIsContainerName(t *testing.T) {
	if !isContainerName("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef") {
		t.Fatalf("expected long hash to be a container")
	}
	if !isContainerName("docker-abc") {
		t.Fatalf("expected docker- prefix to be a container")
	}
	if !isContainerName("crio-abc") {
		t.Fatalf("expected crio- prefix to be a container")
	}
	if isContainerName("cgroup.procs") {
		t.Fatalf("expected short non-runtime name to be ignored")
	}
	if isContainerName("12345678901234567890") {
		t.Fatalf("expected name at the length threshold to be ignored")
	}
}
