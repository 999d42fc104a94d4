package convert

import (
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"

	"cyc/config"
	"cyc/state"
)

// buildOutputPath returns output file path for the source. "src" is the source
// path relative to what was requested on the command line, "dst" is the
// destination directory. Relative directories of the source are kept unless
// requested otherwise, every path segment is cleaned and, if configured,
// transliterated.
func buildOutputPath(src, dst string, env *state.LocalEnv) string {
	src = filepath.FromSlash(src)

	parts := []string{dst}
	if !env.NoDirs {
		for _, segment := range splitPath(filepath.Dir(src)) {
			parts = append(parts, cleanPathSegment(segment, env))
		}
	}
	baseName := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	parts = append(parts, cleanPathSegment(baseName, env)+env.Cfg.Document.Extension)
	return filepath.Join(parts...)
}

func splitPath(dir string) []string {
	if dir == "." || dir == string(filepath.Separator) {
		return nil
	}
	var segments []string
	for _, s := range strings.Split(filepath.Clean(dir), string(filepath.Separator)) {
		if s != "" && s != "." && s != ".." {
			segments = append(segments, s)
		}
	}
	return segments
}

func cleanPathSegment(segment string, env *state.LocalEnv) string {
	if env.Cfg.Document.FileNameTransliterate {
		segment = slug.Make(segment)
	}
	return config.CleanFileName(segment)
}
