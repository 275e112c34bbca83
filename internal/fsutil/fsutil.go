// SPDX-License-Identifier: MIT

// Package fsutil holds filesystem helpers shared by the export writers and
// the file-serving handlers.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConfineRelPath joins relTarget onto root and ensures the result cannot
// escape root via traversal or absolute paths.
func ConfineRelPath(root, relTarget string) (string, error) {
	if filepath.IsAbs(relTarget) {
		return "", fmt.Errorf("absolute path %q not allowed", relTarget)
	}

	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root %q: %w", root, err)
	}

	joined := filepath.Join(rootAbs, relTarget)
	rel, err := filepath.Rel(rootAbs, joined)
	if err != nil {
		return "", fmt.Errorf("resolve %q under %q: %w", relTarget, root, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes root", relTarget)
	}
	return joined, nil
}

// IsRegularFile returns an error unless path exists and is a regular file.
func IsRegularFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%q is not a regular file", path)
	}
	return nil
}
