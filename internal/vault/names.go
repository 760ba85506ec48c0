package vault

import (
	"fmt"
	"strings"
)

// checkNames rejects keys and names that would escape their directory or
// prefix.
func checkNames(parts ...string) error {
	for _, p := range parts {
		if p == "" || p == "." || p == ".." || strings.ContainsAny(p, `/\`) {
			return fmt.Errorf("invalid snapshot name %q", p)
		}
	}
	return nil
}
