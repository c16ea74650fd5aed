/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package version provides build version information.
package version

import (
	"fmt"
	"runtime"
)

// Version is the current version of dynbias.
// This is set at build time via ldflags:
//
//	-X github.com/friendsincode/dynbias/internal/version.Version=X.Y.Z
var Version = "0.3.0"

// Commit is the source revision, set at build time like Version.
var Commit = "unknown"

// String returns a one-line description of the build.
func String() string {
	return fmt.Sprintf("dynbias %s (%s, %s)", Version, Commit, runtime.Version())
}
