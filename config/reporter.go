package config

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	yaml "gopkg.in/yaml.v3"

	"cyc/misc"
)

type ReporterConfig struct {
	Destination string `yaml:"destination" sanitize:"path_clean,assure_dir_exists_for_file" validate:"required,filepath"`
}

// Prepare opens report archive at configured destination, falling back to a
// temporary file.
func (conf *ReporterConfig) Prepare() (*Report, error) {
	f, err := os.Create(conf.Destination)
	if err != nil {
		if f, err = os.CreateTemp("", misc.GetAppName()+"-report.*.zip"); err != nil {
			return nil, fmt.Errorf("unable to create report: %w", err)
		}
	}
	return &Report{file: f, attachments: make(map[string]attachment), created: time.Now()}, nil
}

// Conversion records a single translated source.
type Conversion struct {
	// Source is the source name relative to the processed path, "stdin" for
	// standard input.
	Source string
	// Target is the output name relative to destination, "stdout" for
	// standard output.
	Target string
	// Path is the produced file. Empty when output went to stdout.
	Path string
	Mode string
	// Lines is the number of markup lines, Kinds their breakdown by kind.
	Lines int
	Kinds map[string]int
	// Structure is a readable dump of source lines and their kinds.
	Structure []byte
	// Output keeps produced HTML when there is no file to pick it from.
	Output  []byte
	Elapsed time.Duration
	Err     error
}

func (c *Conversion) structureName() string {
	return path.Join("structure", filepath.ToSlash(c.Source)+".txt")
}

func (c *Conversion) resultName() string {
	return path.Join("result", filepath.ToSlash(c.Target))
}

// attachment is either a file read when archive is written or data kept in
// memory.
type attachment struct {
	file  string
	data  []byte
	stamp time.Time
}

// Report collects what is needed to troubleshoot a run: log files, the
// configuration and every conversion with its source structure and result.
// Nil Report ignores all calls, this is how "no report requested" is
// expressed. Not safe for concurrent use.
type Report struct {
	file        *os.File
	created     time.Time
	attachments map[string]attachment
	conversions []Conversion
}

// Name returns absolute name of the report archive.
func (r *Report) Name() string {
	if r == nil || r.file == nil {
		return ""
	}
	n, err := filepath.Abs(r.file.Name())
	if err != nil {
		return r.file.Name()
	}
	return n
}

// AttachFile adds file to the report. Its content is read when report is
// closed, so files still being written (logs) end up complete. Attaching a
// different file under a used name is a programming error.
func (r *Report) AttachFile(name, file string) {
	if r == nil {
		return
	}
	if abs, err := filepath.Abs(file); err == nil {
		file = abs
	}
	if prev, ok := r.attachments[name]; ok && prev.file != file {
		panic(fmt.Sprintf("report entry %q already holds %q, refusing %q", name, prev.file, file))
	}
	r.attachments[name] = attachment{file: file}
}

// AttachData adds data to the report. A name used before gets a timestamp
// suffix.
func (r *Report) AttachData(name string, data []byte) {
	if r == nil {
		return
	}
	a := attachment{data: data, stamp: time.Now()}
	if _, ok := r.attachments[name]; ok {
		name = fmt.Sprintf("%s-%d", name, a.stamp.UnixNano())
	}
	r.attachments[name] = a
}

// AddConversion records a conversion together with its structure dump and
// produced output.
func (r *Report) AddConversion(c Conversion) {
	if r == nil {
		return
	}
	if len(c.Structure) > 0 {
		r.AttachData(c.structureName(), c.Structure)
	}
	switch {
	case c.Err != nil:
	case c.Path != "":
		r.AttachFile(c.resultName(), c.Path)
	case len(c.Output) > 0:
		r.AttachData(c.resultName(), c.Output)
	}
	c.Structure, c.Output = nil, nil
	r.conversions = append(r.conversions, c)
}

// Conversions returns number of recorded conversions and how many of them
// failed.
func (r *Report) Conversions() (total, failed int) {
	if r == nil {
		return 0, 0
	}
	for _, c := range r.conversions {
		if c.Err != nil {
			failed++
		}
	}
	return len(r.conversions), failed
}

// Close writes the archive: MANIFEST, conversions index and attachments.
func (r *Report) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	defer r.file.Close()

	zw := zip.NewWriter(r.file)
	if err := r.write(zw); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

func (r *Report) write(zw *zip.Writer) error {
	names := make([]string, 0, len(r.attachments))
	for name := range r.attachments {
		names = append(names, name)
	}
	sort.Strings(names)

	if err := addEntry(zw, "MANIFEST", r.created, bytes.NewReader(r.manifest(names))); err != nil {
		return err
	}
	index, err := r.conversionIndex()
	if err != nil {
		return err
	}
	if err := addEntry(zw, "conversions.yaml", r.created, bytes.NewReader(index)); err != nil {
		return err
	}

	for _, name := range names {
		a := r.attachments[name]
		if a.file == "" {
			if err := addEntry(zw, name, a.stamp, bytes.NewReader(a.data)); err != nil {
				return err
			}
			continue
		}
		// files which were never created are skipped
		fi, err := os.Stat(a.file)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		if err := addFileEntry(zw, name, a.file, fi.ModTime()); err != nil {
			return err
		}
	}
	return nil
}

// manifest lists conversions first, as they are what a report is usually
// opened for, followed by every attachment and where it came from.
func (r *Report) manifest(names []string) []byte {
	buf := new(bytes.Buffer)
	fmt.Fprintf(buf, "%s %s debug report, %s\n", misc.GetAppName(), misc.GetVersion(), r.created.UTC().Format(time.RFC3339))

	total, failed := r.Conversions()
	fmt.Fprintf(buf, "\nConversions: %d, failed: %d\n", total, failed)
	for _, c := range r.conversions {
		if c.Err != nil {
			fmt.Fprintf(buf, "  FAIL %s: %v\n", c.Source, c.Err)
			continue
		}
		fmt.Fprintf(buf, "  OK   %s -> %s (%s, %d lines, %s)\n", c.Source, c.Target, c.Mode, c.Lines, c.Elapsed.Round(time.Microsecond))
	}

	fmt.Fprintf(buf, "\nAttachments: %d\n", len(names))
	for _, name := range names {
		a := r.attachments[name]
		origin := "memory"
		if a.file != "" {
			origin = a.file
		}
		fmt.Fprintf(buf, "  %s <- %s\n", name, origin)
	}
	return buf.Bytes()
}

type indexEntry struct {
	Source    string         `yaml:"source"`
	Target    string         `yaml:"target,omitempty"`
	Path      string         `yaml:"path,omitempty"`
	Mode      string         `yaml:"mode,omitempty"`
	Lines     int            `yaml:"lines"`
	Kinds     map[string]int `yaml:"kinds,omitempty"`
	Structure string         `yaml:"structure,omitempty"`
	Result    string         `yaml:"result,omitempty"`
	Elapsed   string         `yaml:"elapsed"`
	Error     string         `yaml:"error,omitempty"`
}

// conversionIndex maps every source to its archived structure dump and
// result in machine readable form.
func (r *Report) conversionIndex() ([]byte, error) {
	index := make([]indexEntry, 0, len(r.conversions))
	for _, c := range r.conversions {
		e := indexEntry{
			Source:  c.Source,
			Target:  c.Target,
			Path:    c.Path,
			Mode:    c.Mode,
			Lines:   c.Lines,
			Kinds:   c.Kinds,
			Elapsed: c.Elapsed.String(),
		}
		if _, ok := r.attachments[c.structureName()]; ok {
			e.Structure = c.structureName()
		}
		if c.Err != nil {
			e.Error = c.Err.Error()
		} else if _, ok := r.attachments[c.resultName()]; ok {
			e.Result = c.resultName()
		}
		index = append(index, e)
	}
	data, err := yaml.Marshal(map[string][]indexEntry{"conversions": index})
	if err != nil {
		return nil, fmt.Errorf("unable to build conversions index: %w", err)
	}
	return data, nil
}

func addFileEntry(zw *zip.Writer, name, file string, modified time.Time) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()
	return addEntry(zw, name, modified, f)
}

func addEntry(zw *zip.Writer, name string, modified time.Time, src io.Reader) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: modified})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}
