// Package version provides build-time version information
// injected via ldflags during compilation.
package version

import (
	"fmt"
	"runtime"
)

// These variables are set at build time via -ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// String is the one-line banner printed by "tlsguard version".
func String() string {
	return fmt.Sprintf("tlsguard v%s (built %s, %s %s/%s)",
		Version, BuildTime, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
