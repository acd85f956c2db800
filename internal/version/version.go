package version

// value is stamped at release time via -ldflags "-X ...version.value=".
var value = "0.1.0-dev"

// Value returns the agent build version.
func Value() string {
	return value
}
