// Package archive builds Walk abstraction on top of "archive/zip" for
// processing documentation sources bundled into zip files.
package archive

import (
	"archive/zip"
	"path"
	"path/filepath"
	"strings"
)

// WalkFunc is the type of the function called for each file in archive
// visited by Walk. The archive argument contains path to archive passed to Walk.
// The file argument is the zip.File structure for file in archive which satisfies
// match condition. If an error is returned, processing stops.
type WalkFunc func(archive string, file *zip.File) error

// Walk calls walkFn for every regular file in the archive under subpath,
// which may name a member directly or a directory inside the archive. Empty
// subpath visits the whole archive. Member names use forward slashes, the
// subpath is normalized before matching. Entries with path traversal
// components ("..") or absolute paths are silently skipped to prevent Zip
// Slip attacks.
func Walk(archive, subpath string, walkFn WalkFunc) error {

	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	subpath = strings.Trim(filepath.ToSlash(subpath), "/")
	subpath = strings.TrimPrefix(subpath, "./")

	for _, f := range r.File {
		name := f.FileHeader.Name
		if !isSafePath(name) {
			continue
		}
		if f.FileInfo().IsDir() || !underSubpath(name, subpath) {
			continue
		}
		if err := walkFn(archive, f); err != nil {
			return err
		}
	}
	return nil
}

// underSubpath matches on component boundaries, "doc" covers "doc/a.xml"
// and "doc" itself but not "docs/a.xml".
func underSubpath(name, subpath string) bool {
	if len(subpath) == 0 {
		return true
	}
	if !strings.HasPrefix(name, subpath) {
		return false
	}
	rest := name[len(subpath):]
	return len(rest) == 0 || rest[0] == '/'
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
