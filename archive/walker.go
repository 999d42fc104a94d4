// Package archive walks CY sources stored in zip archives.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/maruel/natural"
)

// WalkFunc is called for every regular file in the archive under the requested
// prefix. Name is the cleaned slash separated path of the entry. If an error
// is returned, walking stops.
type WalkFunc func(archive, name string, file *zip.File) error

// Walk visits files of the archive located under prefix in natural name
// order. Archives containing absolute entry names or ".." components are
// rejected before anything is visited.
func Walk(ctx context.Context, archive, prefix string, walkFn WalkFunc) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	prefix = strings.TrimPrefix(path.Clean("/"+strings.ReplaceAll(prefix, `\`, "/")), "/")

	files := make(map[string]*zip.File, len(r.File))
	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		if !isSafePath(f.Name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", f.Name)
		}
		if f.FileInfo().IsDir() || !underPrefix(f.Name, prefix) {
			continue
		}
		if _, dup := files[f.Name]; dup {
			continue
		}
		files[f.Name] = f
		names = append(names, f.Name)
	}
	sort.Sort(natural.StringSlice(names))

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := walkFn(archive, path.Clean(name), files[name]); err != nil {
			return err
		}
	}
	return nil
}

// underPrefix reports whether name is prefix itself or is located in the
// prefix directory. Empty prefix matches everything.
func underPrefix(name, prefix string) bool {
	if prefix == "" {
		return true
	}
	name = path.Clean(name)
	return name == prefix || strings.HasPrefix(name, prefix+"/")
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return false
		}
	}
	return true
}
