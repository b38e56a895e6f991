// Package version holds build metadata stamped in with -ldflags -X.
package version

import (
	"fmt"
	"runtime/debug"
)

// Build metadata. Release builds override these through the linker.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String formats the metadata for the version command.
func String() string {
	v, c := Version, Commit

	if info, ok := debug.ReadBuildInfo(); ok && v == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		v = info.Main.Version
	}

	return fmt.Sprintf("convsym %s (commit: %s, built: %s)", v, c, Date)
}
