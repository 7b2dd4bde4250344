package cfb

import (
	"fmt"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/logicossoftware/go-cfb/binrec"
)

// validateName checks a name given by a caller. Names read from a container
// are not checked here.
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("%w: %q is not valid UTF-8", ErrInvalidName, name)
	}
	if n := binrec.UTF16Len(name); n > MaxNameLen {
		return fmt.Errorf("%w: %q is %d UTF-16 units, limit %d", ErrInvalidName, name, n, MaxNameLen)
	}
	if strings.ContainsAny(name, "/\\:!\x00") {
		return fmt.Errorf("%w: %q contains a reserved character", ErrInvalidName, name)
	}
	return nil
}

// validateEntryPath checks a slash-separated path below the root, as used by
// Lookup and by bundle entries.
func validateEntryPath(p string) error {
	if strings.TrimSpace(p) == "" {
		return fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(p, "/") {
		return fmt.Errorf("path must not be absolute")
	}
	if strings.Contains(p, "\\") {
		return fmt.Errorf("path must use forward slashes")
	}
	clean := path.Clean(p)
	if clean != p {
		return fmt.Errorf("path must be normalized: %q", clean)
	}
	if clean == "." {
		return fmt.Errorf("path must not be current directory")
	}
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("path must not escape")
	}
	for _, part := range strings.Split(clean, "/") {
		if err := validateName(part); err != nil {
			return err
		}
	}
	return nil
}

// validateTable checks the properties a write would emit: names, sibling
// uniqueness, stream sizes and the total. Detached properties are ignored.
func validateTable(t *PropertyTable, limits Limits) error {
	root, err := t.Root()
	if err != nil {
		return err
	}
	order, _, err := t.reachable()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if n := len(order); n > limits.MaxProperties {
		return fmt.Errorf("%w: %d properties", ErrLimitExceeded, n)
	}
	var total uint64
	for _, p := range order {
		if p == root {
			continue
		}
		if binrec.UTF16Len(p.Name) > MaxNameLen {
			return fmt.Errorf("%w: %q is too long", ErrValidation, p.Name)
		}
		if p.Type == TypeDocument {
			if p.Size > limits.MaxStreamSize {
				return fmt.Errorf("%w: stream %q is %d bytes", ErrLimitExceeded, p.Name, p.Size)
			}
			total += p.Size
		}
	}
	if total > limits.MaxTotalSize {
		return fmt.Errorf("%w: streams total %d bytes", ErrLimitExceeded, total)
	}
	return nil
}
