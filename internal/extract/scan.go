package extract

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ScannedFile is a supported document found by ScanDir.
type ScannedFile struct {
	RelPath string // Relative to the scan root, forward slashes
	Folder  string // Directory part of RelPath, "" for root-level files
	AbsPath string
}

// ScanDir walks root and returns every file with a supported extension.
// Hidden directories are skipped. If root is a file it is returned alone when supported.
func ScanDir(ctx context.Context, root string) ([]ScannedFile, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", root, err)
	}
	if !info.IsDir() {
		if !Supported(root) {
			return nil, &Error{Filename: root, Err: ErrUnsupported}
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}
		return []ScannedFile{{RelPath: filepath.Base(root), AbsPath: abs}}, nil
	}

	var files []ScannedFile
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("failed to access path %s: %w", path, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !Supported(path) {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("failed to compute relative path for %s: %w", path, err)
		}
		relPath = filepath.ToSlash(relPath)

		folder := filepath.ToSlash(filepath.Dir(relPath))
		if folder == "." {
			folder = ""
		}

		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		files = append(files, ScannedFile{RelPath: relPath, Folder: folder, AbsPath: abs})
		return nil
	})
	if err != nil {
		return files, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	return files, nil
}
