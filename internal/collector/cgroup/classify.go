package cgroup

import "strings"

// kind is the outcome of classifying a hierarchy directory by name.
type kind int

const (
	kindUnrecognized kind = iota
	kindPod
	kindQoS
)

var qosKeywords = []string{"burstable", "besteffort", "guaranteed"}

// classify decides whether a directory is a pod boundary, a QoS slice to
// descend through, or noise. The pod test runs first and must stay first: a
// pod's own name can contain a QoS keyword (e.g. "pod-burstable-1234"), and
// reordering would misclassify it as a slice.
func classify(name string) kind {
	if strings.HasPrefix(name, "pod") || strings.Contains(name, "-pod") {
		return kindPod
	}
	for _, keyword := range qosKeywords {
		if strings.Contains(name, keyword) {
			return kindQoS
		}
	}
	return kindUnrecognized
}

// minContainerNameLen filters pod children down to container scopes: runtime
// container IDs are long hashes, everything the kubelet adds besides them is
// short.
const minContainerNameLen = 20

var containerPrefixes = []string{"docker-", "crio-"}

// isContainerName reports whether a pod child looks like a container scope.
func isContainerName(name string) bool {
	if len(name) > minContainerNameLen {
		return true
	}
	for _, prefix := range containerPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
