package common

import (
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"
)

// Version is stamped by the release build:
//
//	-ldflags "-X github.com/dfproto/protogen/internal/codegen/common.Version=x.y.z"
var Version = ""

const devVersion = "0.0.1-dev"

// GetVersion returns the stamped version, else the module version of a
// `go install`ed binary, else a development placeholder.
func GetVersion() (string, error) {
	v := Version
	if v == "" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "(devel)" {
			v = info.Main.Version
		}
	}
	if v == "" {
		return devVersion, nil
	}

	v = strings.TrimPrefix(v, "v")
	if !validVersion(v) {
		return "", fmt.Errorf("invalid version %q (expected x.y.z)", v)
	}
	return v, nil
}

// validVersion accepts "x.y" or "x.y.z" with an optional pre-release or
// build suffix.
func validVersion(v string) bool {
	base, _, _ := strings.Cut(v, "-")
	base, _, _ = strings.Cut(base, "+")
	parts := strings.Split(base, ".")
	if len(parts) < 2 || len(parts) > 3 {
		return false
	}
	for _, p := range parts {
		if n, err := strconv.Atoi(p); err != nil || n < 0 {
			return false
		}
	}
	return true
}
