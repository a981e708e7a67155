package artifact

import (
	"fmt"
	"path"
	"strings"
)

// cleanName normalizes an artifact name to a relative slash path that stays
// inside the run scope. Nested names like "figures/fig1.png" are allowed.
func cleanName(name string) (string, error) {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidName)
	}

	if strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: %q is absolute", ErrInvalidName, name)
	}

	cleaned := path.Clean(name)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q escapes the run directory", ErrInvalidName, name)
	}

	return cleaned, nil
}
