package version

var (
	module  = "pkt.systems/gridmux"
	current = "0.1.0"
)

// Module returns the module path.
func Module() string {
	return module
}

// Current returns the release version, overridable at link time.
func Current() string {
	return current
}
