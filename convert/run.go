// Package convert implements the convert command: it finds CY sources, turns
// them into HTML and writes the results.
package convert

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strings"
	"text/template"
	"time"

	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"cyc/archive"
	"cyc/common"
	"cyc/config"
	"cyc/css"
	"cyc/cy"
	"cyc/state"
)

// StdioSource is the source name which requests reading from standard input
// and writing to standard output.
const StdioSource = "-"

// Prepare is the Before hook of the convert command. It settles output mode
// and loads page resources, so that a broken template or stylesheet fails the
// command before any source is read.
func Prepare(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	env := state.EnvFromContext(ctx)

	env.Mode = env.Cfg.Document.Mode
	if cmd.IsSet("to") {
		mode, err := common.ParseOutputMode(cmd.String("to"))
		if err != nil {
			env.Log.Named("convert").Warn("Unknown output mode requested, using configured one", zap.Stringer("mode", env.Mode), zap.Error(err))
		} else {
			env.Mode = mode
		}
	}
	env.NoDirs, env.Overwrite = cmd.Bool("nodirs"), cmd.Bool("overwrite")

	return ctx, loadPageResources(env)
}

// WritesStdout reports whether the command sends converted markup to
// standard output.
func WritesStdout(cmd *cli.Command) bool {
	return cmd.Args().First() == StdioSource
}

// Run is the action of the convert command.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("convert")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}

	if src == StdioSource {
		if cmd.Args().Len() > 1 {
			log.Warn("Output goes to STDOUT, ignoring destination", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
		}
		return processStream(ctx, env.Stdin, env.Stdout, log)
	}

	if src, err = filepath.Abs(src); err != nil {
		return err
	}
	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst), zap.Stringer("mode", env.Mode))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, src, dst, log)
}

// loadPageResources puts stylesheet and page template into the environment,
// either embedded defaults or ones from configured files. The template is
// checked here so that a broken one fails the run before any output is made.
func loadPageResources(env *state.LocalEnv) error {
	page := &env.Cfg.Document.Page

	env.Stylesheet = defaultStylesheet
	if page.StylesheetPath != "" {
		data, err := os.ReadFile(page.StylesheetPath)
		if err != nil {
			return fmt.Errorf("unable to read stylesheet from %q: %w", page.StylesheetPath, err)
		}
		env.Stylesheet = data
		checkStylesheet(env.Stylesheet, page.StylesheetPath, env.Log)
	}

	env.PageTemplate = defaultPageTemplate
	if page.TemplatePath != "" {
		data, err := os.ReadFile(page.TemplatePath)
		if err != nil {
			return fmt.Errorf("unable to read page template from %q: %w", page.TemplatePath, err)
		}
		env.PageTemplate = string(data)
	}
	if _, err := template.New("page").Funcs(sprig.FuncMap()).Parse(env.PageTemplate); err != nil {
		return fmt.Errorf("unable to parse page template: %w", err)
	}
	return nil
}

// checkStylesheet reports problems of user provided stylesheet. They do not
// prevent conversion, browsers are tolerant.
func checkStylesheet(data []byte, source string, log *zap.Logger) {
	sum := css.NewChecker(log).Check(data, source)
	if sum.Err != nil {
		log.Warn("Stylesheet could not be parsed completely", zap.String("source", source), zap.Error(sum.Err))
	}
	for _, p := range sum.Problems {
		log.Warn("Stylesheet problem", zap.String("source", source), zap.String("problem", p))
	}
	if len(sum.Imports) > 0 {
		log.Info("Stylesheet imports are not embedded into pages", zap.String("source", source), zap.Strings("imports", sum.Imports))
	}
}

// process handles the core conversion logic independently of CLI framework. It
// determines the input type (directory, archive, or single file) and processes
// accordingly. Anything which does not exist on disk at the end of the path is
// considered to be a path inside an archive.
func process(ctx context.Context, src, dst string, log *zap.Logger) error {
	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))
		if len(head) == 0 {
			break
		}

		fi, err := os.Stat(head)
		if err != nil {
			// does not exists - probably path in archive
			continue
		}

		if fi.Mode().IsDir() {
			if len(tail) != 0 {
				// directory cannot have tail - it would be simple file
				return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			if err := processDir(ctx, head, dst, log); err != nil {
				return fmt.Errorf("unable to process directory: %w", err)
			}
			return nil
		}

		if !fi.Mode().IsRegular() {
			return fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		isArchive, err := isArchiveFile(head)
		if err != nil {
			// checking format - but cannot open target file
			return fmt.Errorf("unable to check archive type: %w", err)
		}
		if isArchive {
			// we need to look inside to see if path makes sense
			pathIn := strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator))
			if err := processArchive(ctx, head, pathIn, "", dst, log); err != nil {
				return fmt.Errorf("unable to process archive: %w", err)
			}
			return nil
		}

		if len(tail) != 0 {
			return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		// explicitly named file does not need source extension
		text, enc, err := isSourceFile(head, func(string) bool { return true })
		if err != nil {
			return fmt.Errorf("unable to check file type: %w", err)
		}
		if !text {
			return fmt.Errorf("input was not recognized as CY markup (%s)", head)
		}
		if err := processFile(ctx, head, filepath.Base(head), dst, enc, log); err != nil {
			return fmt.Errorf("unable to process file (%s): %w", head, err)
		}
		return nil
	}
	return fmt.Errorf("input source was not found (%s)", src)
}

// walkDir calls fn for every regular file under dir, visiting directory
// entries in natural order. Symbolic links are not followed. "rel" is the path
// of dir relative to the walk root.
func walkDir(ctx context.Context, dir, rel string, log *zap.Logger, fn func(path, rel string) error) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(entries))
	kinds := make(map[string]os.FileMode, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
		kinds[e.Name()] = e.Type()
	}
	sort.Sort(natural.StringSlice(names))

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		path, relPath := filepath.Join(dir, name), filepath.Join(rel, name)
		switch mode := kinds[name]; {
		case mode.IsDir():
			if err := walkDir(ctx, path, relPath, log, fn); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				log.Warn("Skipping directory", zap.String("path", path), zap.Error(err))
			}
		case mode.IsRegular():
			if err := fn(path, relPath); err != nil {
				return err
			}
		}
	}
	return nil
}

// processDir walks directory tree finding sources and archives and processes
// them. Failures of individual files do not stop the walk, they are logged and
// returned together.
func processDir(ctx context.Context, dir, dst string, log *zap.Logger) (err error) {
	env := state.EnvFromContext(ctx)

	count := 0
	defer func() {
		if err == nil && count == 0 {
			log.Debug("Nothing to process", zap.String("dir", dir))
		}
	}()

	var failed error
	err = walkDir(ctx, dir, "", log, func(path, rel string) error {
		isArchive, err := isArchiveFile(path)
		if err != nil {
			// checking format - but cannot open target file
			log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			return nil
		}
		if isArchive {
			count++
			if err := processArchive(ctx, path, "", filepath.Dir(rel), dst, log); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				log.Error("Unable to process archive", zap.String("file", path), zap.Error(err))
				multierr.AppendInto(&failed, fmt.Errorf("%s: %w", rel, err))
			}
			return nil
		}

		text, enc, err := isSourceFile(path, env.Cfg.Document.IsSource)
		if err != nil {
			log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			return nil
		}
		if !text {
			log.Debug("Skipping file, not recognized as source or archive", zap.String("file", path))
			return nil
		}

		count++
		if err := processFile(ctx, path, rel, dst, enc, log); err != nil {
			log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
			multierr.AppendInto(&failed, fmt.Errorf("%s: %w", rel, err))
		}
		return nil
	})
	return multierr.Append(err, failed)
}

// processArchive walks all files inside archive, finds sources under "pathIn"
// and processes them. "pathOut" is the archive location relative to the
// processed directory, if any.
func processArchive(ctx context.Context, path, pathIn, pathOut, dst string, log *zap.Logger) (err error) {
	env := state.EnvFromContext(ctx)

	count := 0
	defer func() {
		if err == nil && count == 0 {
			log.Debug("Nothing to process", zap.String("archive", path), zap.String("path", pathIn))
		}
	}()

	var failed error
	err = archive.Walk(ctx, path, pathIn, func(archive, name string, f *zip.File) error {
		text, enc, err := isSourceInArchive(f, env.Cfg.Document.IsSource)
		if err != nil {
			log.Warn("Skipping file in archive", zap.String("archive", archive), zap.String("path", name), zap.Error(err))
			return nil
		}
		if !text {
			log.Debug("Skipping file, not recognized as source", zap.String("archive", archive), zap.String("file", name))
			return nil
		}

		count++
		if err := processEntry(ctx, f, filepath.Join(pathOut, filepath.FromSlash(name)), dst, enc, log); err != nil {
			log.Error("Unable to process file in archive", zap.String("archive", archive), zap.String("file", name), zap.Error(err))
			multierr.AppendInto(&failed, fmt.Errorf("%s: %w", name, err))
		}
		return nil
	})
	return multierr.Append(err, failed)
}

func processFile(ctx context.Context, path, src, dst string, enc srcEncoding, log *zap.Logger) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return processSource(ctx, selectReader(file, enc), src, dst, log)
}

func processEntry(ctx context.Context, f *zip.File, src, dst string, enc srcEncoding, log *zap.Logger) error {
	r, err := f.Open()
	if err != nil {
		return err
	}
	defer r.Close()
	return processSource(ctx, selectReader(r, enc), src, dst, log)
}

// processSource converts single source. "src" is part of the source path
// (always including file name) relative to the original path. When actual file
// was specified it will be just base file name without a path. When looking
// inside archive or directory it will be relative path inside archive or
// directory (including base file name). "dst" is the destination directory
// where the converted file should be written.
func processSource(ctx context.Context, r io.Reader, src, dst string, log *zap.Logger) (rerr error) {
	env := state.EnvFromContext(ctx)

	rec := config.Conversion{Source: src, Mode: env.Mode.String()}

	log.Info("Conversion starting", zap.String("from", src))
	defer func(start time.Time) {
		rec.Elapsed = time.Since(start)
		if r := recover(); r != nil {
			log.Error("Conversion ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", rec.Elapsed), zap.String("to", rec.Path), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("conversion panic: %v", r)
		} else if rerr == nil {
			log.Info("Conversion completed", zap.Duration("elapsed", rec.Elapsed), zap.String("to", rec.Path))
		}
		rec.Err = rerr
		env.Rpt.AddConversion(rec)
	}(time.Now())

	out, err := translateSource(r, &rec, env, log)
	if err != nil {
		return err
	}

	rec.Path = buildOutputPath(src, dst, env)
	rec.Target = rec.Path
	if rel, err := filepath.Rel(dst, rec.Path); err == nil {
		rec.Target = rel
	}

	if _, err := os.Stat(rec.Path); err == nil {
		if !env.Overwrite {
			return fmt.Errorf("output file already exists: %s", rec.Path)
		}
		log.Warn("Overwriting existing file", zap.String("file", rec.Path))
	} else if !os.IsNotExist(err) {
		return err
	} else if err := os.MkdirAll(filepath.Dir(rec.Path), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	if err := os.WriteFile(rec.Path, out, 0644); err != nil {
		return fmt.Errorf("unable to write output: %w", err)
	}
	return nil
}

// processStream converts markup read from r and writes result to w.
func processStream(ctx context.Context, r io.Reader, w io.Writer, log *zap.Logger) (err error) {
	env := state.EnvFromContext(ctx)

	rec := config.Conversion{Source: "stdin", Target: "stdout", Mode: env.Mode.String()}
	defer func(start time.Time) {
		rec.Elapsed, rec.Err = time.Since(start), err
		env.Rpt.AddConversion(rec)
	}(time.Now())

	out, err := translateSource(selectReader(r, encUnknown), &rec, env, log)
	if err != nil {
		return err
	}
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("unable to write output: %w", err)
	}
	if env.Rpt != nil {
		rec.Output = out
	}
	return nil
}

// translateSource reads complete source and produces its final output. Source
// statistics are put into rec.
func translateSource(r io.Reader, rec *config.Conversion, env *state.LocalEnv, log *zap.Logger) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read source (%s): %w", rec.Source, err)
	}
	text := string(data)

	counts := cy.Count(text)
	rec.Lines = len(cy.Lines(text))

	if ce := log.Check(zap.DebugLevel, "Source statistics"); ce != nil {
		ce.Write(append([]zap.Field{zap.String("source", rec.Source), zap.Int("lines", rec.Lines)}, countFields(counts)...)...)
	}
	if env.Rpt != nil {
		rec.Kinds = kindNames(counts)
		rec.Structure = []byte(structureDump(text, rec.Source))
	}

	return render(text, cy.Translate(text), rec.Source, env)
}

func countFields(counts map[cy.LineKind]int) []zap.Field {
	fields := make([]zap.Field, 0, len(counts))
	for kind := cy.Heading3; kind <= cy.Paragraph; kind++ {
		if n := counts[kind]; n > 0 {
			fields = append(fields, zap.Int(kind.String(), n))
		}
	}
	return fields
}

func kindNames(counts map[cy.LineKind]int) map[string]int {
	names := make(map[string]int, len(counts))
	for kind, n := range counts {
		names[kind.String()] = n
	}
	return names
}
