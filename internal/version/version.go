// ABOUTME: Product and version constants
// ABOUTME: Reported by the CLI and the sync service info endpoint
package version

const (
	// Version is the release version
	Version = "0.3.0"
	// Product is the product name
	Product = "SoundFlex"
	// Manufacturer is the publisher
	Manufacturer = "SoundFlex"
)

// String returns the product and version for display
func String() string {
	return Product + " " + Version
}
