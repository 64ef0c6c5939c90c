package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeTestArchive(t *testing.T, members map[string]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sources.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("unable to create archive: %v", err)
	}

	w := zip.NewWriter(f)
	names := make([]string, 0, len(members))
	for name := range members {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("unable to create member %s: %v", name, err)
		}
		if _, err := fw.Write([]byte(members[name])); err != nil {
			t.Fatalf("unable to write member %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("unable to finish archive: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("unable to close archive: %v", err)
	}
	return path
}

func collect(t *testing.T, path, subpath string) []string {
	t.Helper()

	var visited []string
	err := Walk(path, subpath, func(arc string, f *zip.File) error {
		if arc != path {
			t.Errorf("archive = %s, want %s", arc, path)
		}
		visited = append(visited, f.Name)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk(%q) error = %v", subpath, err)
	}
	sort.Strings(visited)
	return visited
}

var testMembers = map[string]string{
	"guide/book.xml":        "<book/>",
	"guide/extras/faq.xml":  "<article/>",
	"guidelines.xml":        "<article/>",
	"reference/library.xml": "<library/>",
}

func TestWalkSubpaths(t *testing.T) {
	path := writeTestArchive(t, testMembers)

	tests := []struct {
		name    string
		subpath string
		want    []string
	}{
		{"whole archive", "", []string{"guide/book.xml", "guide/extras/faq.xml", "guidelines.xml", "reference/library.xml"}},
		// "guide" must not cover "guidelines.xml", matching stops at
		// component boundaries
		{"directory", "guide", []string{"guide/book.xml", "guide/extras/faq.xml"}},
		{"directory with slash", "guide/", []string{"guide/book.xml", "guide/extras/faq.xml"}},
		{"dot slash", "./guide", []string{"guide/book.xml", "guide/extras/faq.xml"}},
		{"nested directory", "guide/extras", []string{"guide/extras/faq.xml"}},
		{"single member", "guide/book.xml", []string{"guide/book.xml"}},
		{"no such path", "manual", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collect(t, path, tt.subpath)
			if len(got) != len(tt.want) {
				t.Fatalf("Walk(%q) visited %v, want %v", tt.subpath, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("Walk(%q) visited %v, want %v", tt.subpath, got, tt.want)
				}
			}
		})
	}
}

func TestWalkSkipsDirectoryEntries(t *testing.T) {

	path := filepath.Join(t.TempDir(), "sources.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("unable to create archive: %v", err)
	}

	w := zip.NewWriter(f)
	hdr := &zip.FileHeader{Name: "guide/"}
	hdr.SetMode(os.ModeDir | 0755)
	if _, err := w.CreateHeader(hdr); err != nil {
		t.Fatalf("unable to create directory member: %v", err)
	}
	fw, err := w.Create("guide/book.xml")
	if err != nil {
		t.Fatalf("unable to create member: %v", err)
	}
	if _, err := fw.Write([]byte("<book/>")); err != nil {
		t.Fatalf("unable to write member: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("unable to finish archive: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("unable to close archive: %v", err)
	}

	got := collect(t, path, "guide")
	if len(got) != 1 || got[0] != "guide/book.xml" {
		t.Errorf("visited %v, want only the file member", got)
	}
}

func TestWalkStopsOnError(t *testing.T) {
	path := writeTestArchive(t, testMembers)

	stop := errors.New("stop walking")
	count := 0
	err := Walk(path, "", func(string, *zip.File) error {
		count++
		if count == 2 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Errorf("Walk() error = %v, want %v", err, stop)
	}
	if count != 2 {
		t.Errorf("walk continued after error, %d calls", count)
	}
}

func TestWalkReadsContent(t *testing.T) {
	path := writeTestArchive(t, map[string]string{"book.xml": `<book id="b"/>`})

	err := Walk(path, "book.xml", func(_ string, f *zip.File) error {
		rc, err := f.Open()
		if err != nil {
			return err
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return err
		}
		if !bytes.Equal(data, []byte(`<book id="b"/>`)) {
			t.Errorf("member content = %s", data)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
}

func TestWalkBadArchive(t *testing.T) {
	if err := Walk(filepath.Join(t.TempDir(), "missing.zip"), "", nil); err == nil {
		t.Error("expected error for missing archive")
	}

	bad := filepath.Join(t.TempDir(), "bad.zip")
	if err := os.WriteFile(bad, []byte("not a zip"), 0644); err != nil {
		t.Fatalf("unable to write file: %v", err)
	}
	if err := Walk(bad, "", nil); err == nil {
		t.Error("expected error for file that is not an archive")
	}
}

func TestIsSafePath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"docs/readme.txt", true},
		{"a/b/c.xml", true},
		{"/etc/passwd", false},
		{`\windows\system32`, false},
		{"../evil.txt", false},
		{"docs/../../evil.txt", false},
		{"./docs/file.xml", true},
	}
	for _, tt := range tests {
		if got := isSafePath(tt.path); got != tt.want {
			t.Errorf("isSafePath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
