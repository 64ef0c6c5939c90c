package convert

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"
)

// srcEncoding is the Unicode flavor detected from a byte order mark at the
// beginning of a source file.
type srcEncoding int

const (
	encUnknown srcEncoding = iota
	encUTF8
	encUTF16BigEndian
	encUTF16LittleEndian
	encUTF32BigEndian
	encUTF32LittleEndian
)

// sniffLen is how much of the file head gets examined during content detection.
const sniffLen = 512

// docType is registered with the filetype library so content detection works
// on sources regardless of their extension.
var docType = filetype.NewType("boostbook", "application/x-boostbook+xml")

func init() {
	filetype.AddMatcher(docType, isDocContent)
}

// docRoots lists elements that may open a source document without an XML
// declaration.
var docRoots = []string{"<book", "<boostbook", "<library", "<part", "<chapter", "<article", "<section", "<appendix", "<reference"}

// isDocContent reports whether buf looks like the beginning of a source
// document. A leading UTF-8 BOM is tolerated.
func isDocContent(buf []byte) bool {
	if isUTF8BOM3(buf) {
		buf = buf[3:]
	}
	if len(buf) > sniffLen {
		buf = buf[:sniffLen]
	}
	head := strings.TrimLeft(string(buf), " \t\r\n")
	if strings.HasPrefix(head, "<?xml") {
		return true
	}
	for _, root := range docRoots {
		if strings.HasPrefix(head, root) {
			return true
		}
	}
	return false
}

func isDocExt(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml", ".boostbook":
		return true
	}
	return false
}

// isArchiveFile reports whether path is a zip archive, checking both the
// extension and the content.
func isArchiveFile(path string) (bool, error) {
	if !strings.EqualFold(filepath.Ext(path), ".zip") {
		return false, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := f.Read(head)
	if err != nil && err != io.EOF {
		return false, err
	}
	return filetype.IsType(head[:n], matchers.TypeZip), nil
}

// isDocFile reports whether path is a source document and what Unicode flavor
// its BOM announces, if any.
func isDocFile(path string) (bool, srcEncoding, error) {
	if !isDocExt(path) {
		return false, encUnknown, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return false, encUnknown, err
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := f.Read(head)
	if err != nil && err != io.EOF {
		return false, encUnknown, err
	}
	return sniffDoc(head[:n])
}

// isDocInArchive is isDocFile for a zip archive member.
func isDocInArchive(f *zip.File) (bool, srcEncoding, error) {
	if !isDocExt(f.Name) {
		return false, encUnknown, nil
	}

	r, err := f.Open()
	if err != nil {
		return false, encUnknown, err
	}
	defer r.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return false, encUnknown, err
	}
	return sniffDoc(head[:n])
}

func sniffDoc(head []byte) (bool, srcEncoding, error) {
	enc := detectUTF(head)
	switch enc {
	case encUnknown, encUTF8:
		return isDocContent(head), enc, nil
	default:
		// Multibyte content cannot be matched as text, trust the extension.
		return true, enc, nil
	}
}

// detectUTF looks for a byte order mark at the beginning of buf. UTF-32 LE
// shares its first two bytes with UTF-16 LE and must be checked first.
func detectUTF(buf []byte) srcEncoding {
	switch {
	case isUTF32LittleEndianBOM4(buf):
		return encUTF32LittleEndian
	case isUTF32BigEndianBOM4(buf):
		return encUTF32BigEndian
	case isUTF16LittleEndianBOM2(buf):
		return encUTF16LittleEndian
	case isUTF16BigEndianBOM2(buf):
		return encUTF16BigEndian
	case isUTF8BOM3(buf):
		return encUTF8
	}
	return encUnknown
}

func isUTF8BOM3(buf []byte) bool {
	return len(buf) >= 3 && buf[0] == 0xEF && buf[1] == 0xBB && buf[2] == 0xBF
}

func isUTF16BigEndianBOM2(buf []byte) bool {
	return len(buf) >= 2 && buf[0] == 0xFE && buf[1] == 0xFF
}

func isUTF16LittleEndianBOM2(buf []byte) bool {
	return len(buf) >= 2 && buf[0] == 0xFF && buf[1] == 0xFE
}

func isUTF32BigEndianBOM4(buf []byte) bool {
	return len(buf) >= 4 && buf[0] == 0x00 && buf[1] == 0x00 && buf[2] == 0xFE && buf[3] == 0xFF
}

func isUTF32LittleEndianBOM4(buf []byte) bool {
	return len(buf) >= 4 && buf[0] == 0xFF && buf[1] == 0xFE && buf[2] == 0x00 && buf[3] == 0x00
}

// selectReader wraps r with a decoder matching the detected Unicode flavor.
// The decoders strip the BOM, UTF-8 input is passed through as is.
func selectReader(r io.Reader, enc srcEncoding) io.Reader {
	switch enc {
	case encUnknown, encUTF8:
		return r
	case encUTF16BigEndian:
		return transform.NewReader(r, unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder())
	case encUTF16LittleEndian:
		return transform.NewReader(r, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder())
	case encUTF32BigEndian:
		return transform.NewReader(r, utf32.UTF32(utf32.BigEndian, utf32.UseBOM).NewDecoder())
	case encUTF32LittleEndian:
		return transform.NewReader(r, utf32.UTF32(utf32.LittleEndian, utf32.UseBOM).NewDecoder())
	default:
		panic("unsupported source encoding")
	}
}
