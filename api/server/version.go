// version.go - Node & API version info for the pharma node
package server

// NodeVersion returns the current node software version.
func NodeVersion() string {
	// TODO: inject from build flags once releases are tagged
	return "v1.0.0"
}

// APIVersion returns the current API version.
func APIVersion() string {
	return "v1"
}
