//go:build !amd64

package vtx

// Supported reports whether this package can run on the current platform.
// The VMX root/guest lifecycle is x86-64-specific; on any other
// architecture it is unconditionally unsupported.
func Supported() (bool, error) {
	return false, newErr(KindNotSupported, "supported", "vtx requires amd64")
}
