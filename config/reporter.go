package config

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"bbhtml/misc"
)

type ReporterConfig struct {
	Destination string `yaml:"destination" sanitize:"path_clean,assure_dir_exists_for_file" validate:"required,filepath"`
}

// Prepare opens the report destination, falling back to a temporary file
// when the configured location cannot be created.
func (conf *ReporterConfig) Prepare() (*Report, error) {

	f, err := os.Create(conf.Destination)
	if err != nil {
		f, err = os.CreateTemp("", misc.GetAppName()+"-report.*.zip")
	}
	if err != nil {
		return nil, fmt.Errorf("unable to create report: %w", err)
	}
	return &Report{entries: make(map[string]entry), file: f}, nil
}

// entry is one future archive member: either bytes held in memory or a
// path picked up when the report closes.
type entry struct {
	source   string // path as given by the caller
	resolved string // absolute path, or the snapshot location for copies
	added    time.Time
	data     []byte
}

// Report accumulates conversion artifacts and writes them out as a single
// zip archive with a MANIFEST describing every member. All methods are
// safe on a nil receiver so call sites do not have to track whether a
// report was requested. Not safe for concurrent use.
type Report struct {
	entries map[string]entry
	file    *os.File
}

// Close writes the archive out.
func (r *Report) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	defer r.file.Close()
	return r.finalize()
}

// Name returns the location of the archive being written.
func (r *Report) Name() string {
	if r == nil || r.file == nil {
		return ""
	}
	if abs, err := filepath.Abs(r.file.Name()); err == nil {
		return abs
	}
	return r.file.Name()
}

// Store records a path to pick up when the report closes. The file or
// directory is read at close time, entries gone by then are skipped.
func (r *Report) Store(name, path string) {
	if r == nil {
		return
	}

	if old, ok := r.entries[name]; ok && old.source != path {
		// same name for different artifacts is a programming error
		panic(fmt.Sprintf("report entry %q already holds %s, refusing %s", name, old.source, path))
	}

	e := entry{source: path, resolved: path}
	if abs, err := filepath.Abs(path); err == nil {
		e.resolved = abs
	}
	r.entries[name] = e
}

// StoreData records bytes to write into the archive under name.
func (r *Report) StoreData(name string, data []byte) {
	if r == nil {
		return
	}

	if _, ok := r.entries[name]; ok {
		panic(fmt.Sprintf("report entry %q stored twice", name))
	}
	r.entries[name] = entry{data: data, added: time.Now()}
}

// StoreCopy snapshots a file or directory right away instead of at close
// time, for artifacts which keep changing or disappear before the report
// is finalized. Storing the same name again versions it with a timestamp,
// both snapshots end up in the archive.
func (r *Report) StoreCopy(name, path string) error {
	if r == nil {
		return nil
	}

	e := entry{source: path, added: time.Now()}

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return err
	}

	if _, ok := r.entries[name]; ok {
		name = fmt.Sprintf("%s-%d", name, e.added.UnixNano())
	}

	dir, err := os.MkdirTemp("", misc.GetAppName()+"-report-")
	if err != nil {
		return err
	}

	switch {
	case info.Mode().IsRegular():
		if e.resolved, err = snapshotFile(dir, abs, info.ModTime()); err != nil {
			return err
		}
	case info.Mode().IsDir():
		if err := snapshotTree(dir, abs); err != nil {
			return err
		}
		e.resolved = dir
	}

	r.entries[name] = e
	return nil
}

func snapshotFile(dir, src string, modTime time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	dst := filepath.Join(dir, filepath.Base(src))

	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}

	// keep the original time so the archive shows when the artifact was made
	if err := os.Chtimes(dst, modTime, modTime); err != nil {
		return "", err
	}
	return dst, nil
}

func snapshotTree(dir, src string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			// links, sockets and the like do not belong in a report
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		_, err = snapshotFile(filepath.Dir(filepath.Join(dir, rel)), path, info.ModTime())
		return err
	})
}

// finalize writes the MANIFEST and then every entry, in manifest order.
func (r *Report) finalize() error {

	arc := zip.NewWriter(r.file)

	names, manifest := r.manifest()
	if err := addFile(arc, "MANIFEST", time.Now(), bytes.NewReader(manifest)); err != nil {
		arc.Close()
		return err
	}
	for _, name := range names {
		if err := r.writeEntry(arc, name); err != nil {
			arc.Close()
			return err
		}
	}
	return arc.Close()
}

// manifest renders the entry listing which becomes the first member of
// the archive. Names come back sorted so the layout is reproducible.
func (r *Report) manifest() ([]string, []byte) {
	if len(r.entries) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	now := time.Now()
	var buf bytes.Buffer
	for _, name := range names {
		e := r.entries[name]
		stamp := e.added
		if stamp.IsZero() {
			stamp = now
		}
		if e.source == "" {
			fmt.Fprintf(&buf, "%s\t%s\t(inline data)\n", stamp.UTC().Format(time.RFC3339), name)
			continue
		}
		fmt.Fprintf(&buf, "%s\t%s\t%s => %s\n", stamp.UTC().Format(time.RFC3339), name, e.source, e.resolved)
	}
	return names, buf.Bytes()
}

func (r *Report) writeEntry(arc *zip.Writer, name string) error {
	e := r.entries[name]

	if len(e.data) > 0 {
		return addFile(arc, name, e.added, bytes.NewReader(e.data))
	}

	info, err := os.Stat(e.resolved)
	if err != nil {
		// referenced artifacts may be gone by the time the report closes
		return nil
	}
	switch {
	case info.Mode().IsRegular():
		f, err := os.Open(e.resolved)
		if err != nil {
			return err
		}
		defer f.Close()
		return addFile(arc, name, info.ModTime(), f)
	case info.Mode().IsDir():
		return addTree(arc, name, e.resolved)
	}
	return nil
}

func addFile(arc *zip.Writer, name string, t time.Time, src io.Reader) error {
	w, err := arc.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: t})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}

func addTree(arc *zip.Writer, name, dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return addFile(arc, filepath.ToSlash(filepath.Join(name, rel)), info.ModTime(), f)
	})
}
