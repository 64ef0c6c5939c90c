package convert

import (
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"bbhtml/chunk"
	"bbhtml/config"
	"bbhtml/content"
	"bbhtml/xmlparse"
)

func setupTestContentForTemplate(t *testing.T, src, srcName string) *content.Content {
	t.Helper()
	if src == "" {
		src = `<book id="test-id"><title>Test Guide</title></book>`
	}
	if srcName == "" {
		srcName = "guide.xml"
	}
	root, err := xmlparse.Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	chk := chunk.Document(root, zaptest.NewLogger(t))
	return &content.Content{
		SrcName:      srcName,
		OutputFormat: config.OutputFmtZip,
		RefID:        "0192aaaa-bbbb-7ccc-8ddd-eeeeffff0000",
		Title:        chk.TitleText(),
		Root:         chk,
	}
}

func TestExpandTemplate_SimpleText(t *testing.T) {
	c := setupTestContentForTemplate(t, "", "")

	result, err := expandTemplate(c, config.OutputNameTemplateFieldName, "simple-text", config.OutputFmtZip)
	if err != nil {
		t.Fatalf("expandTemplate() error = %v", err)
	}
	if result != "simple-text" {
		t.Errorf("expandTemplate() = %q, want %q", result, "simple-text")
	}
}

func TestExpandTemplate_Title(t *testing.T) {
	c := setupTestContentForTemplate(t, `<book id="b"><title>The Process Guide</title></book>`, "")

	result, err := expandTemplate(c, config.OutputNameTemplateFieldName, "{{ .Title }}", config.OutputFmtZip)
	if err != nil {
		t.Fatalf("expandTemplate() error = %v", err)
	}
	if result != "The Process Guide" {
		t.Errorf("expandTemplate() = %q, want %q", result, "The Process Guide")
	}
}

func TestExpandTemplate_Date(t *testing.T) {
	c := setupTestContentForTemplate(t,
		`<book id="b"><title>T</title><bookinfo><date>2024-01-15</date></bookinfo></book>`, "")

	result, err := expandTemplate(c, config.OutputNameTemplateFieldName, "{{ .Date }}", config.OutputFmtZip)
	if err != nil {
		t.Fatalf("expandTemplate() error = %v", err)
	}
	if result != "2024-01-15" {
		t.Errorf("expandTemplate() = %q, want %q", result, "2024-01-15")
	}
}

func TestExpandTemplate_Format(t *testing.T) {
	c := setupTestContentForTemplate(t, "", "")

	result, err := expandTemplate(c, config.OutputNameTemplateFieldName, "{{ .Format }}", config.OutputFmtZip)
	if err != nil {
		t.Fatalf("expandTemplate() error = %v", err)
	}
	if result != "zip" {
		t.Errorf("expandTemplate() = %q, want %q", result, "zip")
	}
}

func TestExpandTemplate_SourceFile(t *testing.T) {
	c := setupTestContentForTemplate(t, "", "path/to/process.xml")

	result, err := expandTemplate(c, config.OutputNameTemplateFieldName, "{{ .SourceFile }}", config.OutputFmtZip)
	if err != nil {
		t.Fatalf("expandTemplate() error = %v", err)
	}
	if result != "process" {
		t.Errorf("expandTemplate() = %q, want %q", result, "process")
	}
}

func TestExpandTemplate_DocID(t *testing.T) {
	c := setupTestContentForTemplate(t, `<book id="guide-2024"><title>T</title></book>`, "")

	result, err := expandTemplate(c, config.OutputNameTemplateFieldName, "{{ .DocID }}", config.OutputFmtZip)
	if err != nil {
		t.Fatalf("expandTemplate() error = %v", err)
	}
	if result != "guide-2024" {
		t.Errorf("expandTemplate() = %q, want %q", result, "guide-2024")
	}
}

func TestExpandTemplate_RefID(t *testing.T) {
	c := setupTestContentForTemplate(t, "", "")

	result, err := expandTemplate(c, config.OutputNameTemplateFieldName, "{{ .RefID }}", config.OutputFmtZip)
	if err != nil {
		t.Fatalf("expandTemplate() error = %v", err)
	}
	if result != c.RefID {
		t.Errorf("expandTemplate() = %q, want %q", result, c.RefID)
	}
}

func TestExpandTemplate_ComplexTemplate(t *testing.T) {
	c := setupTestContentForTemplate(t,
		`<book id="proc"><title>The Process Guide</title></book>`, "source.xml")

	template := "{{ .DocID }}/{{ .Format }} - {{ .Title }}"
	result, err := expandTemplate(c, config.OutputNameTemplateFieldName, template, config.OutputFmtZip)
	if err != nil {
		t.Fatalf("expandTemplate() error = %v", err)
	}

	expected := "proc/zip - The Process Guide"
	if result != expected {
		t.Errorf("expandTemplate() = %q, want %q", result, expected)
	}
}

func TestExpandTemplate_SprigFunctions(t *testing.T) {
	c := setupTestContentForTemplate(t, `<book id="b"><title>process guide</title></book>`, "")

	result, err := expandTemplate(c, config.OutputNameTemplateFieldName, "{{ .Title | title }}", config.OutputFmtZip)
	if err != nil {
		t.Fatalf("expandTemplate() error = %v", err)
	}
	if result != "Process Guide" {
		t.Errorf("expandTemplate() = %q, want %q", result, "Process Guide")
	}
}

func TestExpandTemplate_InvalidTemplate(t *testing.T) {
	c := setupTestContentForTemplate(t, "", "")

	_, err := expandTemplate(c, config.OutputNameTemplateFieldName, "{{ .Title", config.OutputFmtZip)
	if err == nil {
		t.Error("expandTemplate() expected error for invalid template, got nil")
	}
}

func TestExpandTemplate_InvalidField(t *testing.T) {
	c := setupTestContentForTemplate(t, "", "")

	_, err := expandTemplate(c, config.OutputNameTemplateFieldName, "{{ .NonExistentField }}", config.OutputFmtZip)
	if err == nil {
		t.Error("expandTemplate() expected error for invalid field, got nil")
	}
}

func TestExpandTemplate_PathSeparators(t *testing.T) {
	c := setupTestContentForTemplate(t, `<book id="proc"><title>Guide</title></book>`, "")

	result, err := expandTemplate(c, config.OutputNameTemplateFieldName, "{{ .DocID }}/{{ .Title }}", config.OutputFmtZip)
	if err != nil {
		t.Fatalf("expandTemplate() error = %v", err)
	}

	// Should contain forward slash for path separation
	if !strings.Contains(result, "/") {
		t.Errorf("expandTemplate() = %q, want to contain /", result)
	}
}

func TestInfoDate(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		expected string
	}{
		{
			"no info block",
			`<book id="b"><title>T</title></book>`,
			"",
		},
		{
			"date present",
			`<book id="b"><title>T</title><bookinfo><date>2024-01-15</date></bookinfo></book>`,
			"2024-01-15",
		},
		{
			"date nested in copyright",
			`<book id="b"><title>T</title><bookinfo><copyright><date>2020</date></copyright></bookinfo></book>`,
			"2020",
		},
		{
			"surrounding whitespace trimmed",
			`<book id="b"><title>T</title><bookinfo><date> 2024 </date></bookinfo></book>`,
			"2024",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := setupTestContentForTemplate(t, tt.src, "")
			if got := infoDate(c); got != tt.expected {
				t.Errorf("infoDate() = %q, want %q", got, tt.expected)
			}
		})
	}
}
