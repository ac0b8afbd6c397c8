package plugin

import (
	"fmt"
	"strconv"
	"strings"
)

// majorVersion parses the major component of a semantic version string.
// Only the major matters for compatibility, so "1", "1.2" and "1.2.3-rc1"
// all parse to 1.
func majorVersion(v string) (int, error) {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	if v == "" {
		return 0, fmt.Errorf("empty version string")
	}
	head := v
	if idx := strings.IndexAny(v, ".-+"); idx != -1 {
		head = v[:idx]
	}
	major, err := strconv.Atoi(head)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", v, err)
	}
	return major, nil
}

// checkAPIVersion enforces the exact-major compatibility boundary.
func checkAPIVersion(declared string) error {
	hostMajor, err := majorVersion(HostAPIVersion)
	if err != nil {
		return fmt.Errorf("host API version: %w", err)
	}
	pluginMajor, err := majorVersion(declared)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIncompatibleVersion, err)
	}
	if pluginMajor != hostMajor {
		return fmt.Errorf("%w: plugin declares %s, host requires major %d",
			ErrIncompatibleVersion, declared, hostMajor)
	}
	return nil
}
