package services

import (
  "archive/zip"
  "bytes"
  "strings"
  "testing"

  "github.com/xuri/excelize/v2"
)

func TestExtractTextPlain(t *testing.T) {
  got, err := ExtractText("notes.txt", "text/plain", []byte("line one\n\nline   two"))
  if err != nil {
    t.Fatalf("extract: %v", err)
  }
  if got != "line one line two" {
    t.Fatalf("got %q", got)
  }
}

func TestExtractTextCSV(t *testing.T) {
  csv := "name,arr\nAcme,120000\nGlobex,450000\n"
  got, err := ExtractText("accounts.csv", "text/csv", []byte(csv))
  if err != nil {
    t.Fatalf("extract: %v", err)
  }
  if !strings.Contains(got, "Acme 120000") || !strings.Contains(got, "Globex 450000") {
    t.Fatalf("got %q", got)
  }
}

func TestExtractTextHTML(t *testing.T) {
  html := "<!DOCTYPE html><html><body><h1>Pricing</h1><p>Starts at &amp; scales.</p></body></html>"
  got, err := ExtractText("page.html", "text/html", []byte(html))
  if err != nil {
    t.Fatalf("extract: %v", err)
  }
  if !strings.Contains(got, "Pricing") || !strings.Contains(got, "Starts at & scales.") {
    t.Fatalf("got %q", got)
  }
  if strings.Contains(got, "<") {
    t.Fatalf("tags not stripped: %q", got)
  }
}

func buildDOCX(t *testing.T, paragraphs ...string) []byte {
  t.Helper()
  var buf bytes.Buffer
  zw := zip.NewWriter(&buf)
  var doc strings.Builder
  doc.WriteString(`<?xml version="1.0"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
  for _, p := range paragraphs {
    doc.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
  }
  doc.WriteString(`</w:body></w:document>`)
  f, err := zw.Create("word/document.xml")
  if err != nil {
    t.Fatalf("zip create: %v", err)
  }
  if _, err := f.Write([]byte(doc.String())); err != nil {
    t.Fatalf("zip write: %v", err)
  }
  if err := zw.Close(); err != nil {
    t.Fatalf("zip close: %v", err)
  }
  return buf.Bytes()
}

func TestExtractTextDOCX(t *testing.T) {
  data := buildDOCX(t, "First paragraph.", "Second paragraph.")
  got, err := ExtractText("brief.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", data)
  if err != nil {
    t.Fatalf("extract: %v", err)
  }
  if !strings.Contains(got, "First paragraph.") || !strings.Contains(got, "Second paragraph.") {
    t.Fatalf("got %q", got)
  }
}

func TestExtractTextXLSX(t *testing.T) {
  f := excelize.NewFile()
  if err := f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Region", "Pipeline"}); err != nil {
    t.Fatalf("set row: %v", err)
  }
  if err := f.SetSheetRow("Sheet1", "A2", &[]interface{}{"EMEA", 125000}); err != nil {
    t.Fatalf("set row: %v", err)
  }
  var buf bytes.Buffer
  if err := f.Write(&buf); err != nil {
    t.Fatalf("write xlsx: %v", err)
  }

  got, err := ExtractText("pipeline.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
  if err != nil {
    t.Fatalf("extract: %v", err)
  }
  if !strings.Contains(got, "Region Pipeline") || !strings.Contains(got, "EMEA 125000") {
    t.Fatalf("got %q", got)
  }
}

func TestExtractTextUnknownBinaryFails(t *testing.T) {
  if _, err := ExtractText("blob.bin", "application/octet-stream", []byte{0x00, 0x01, 0x02, 0xff}); err == nil {
    t.Fatal("expected error for unknown binary")
  }
}

func TestExtractTextMislabeledPDFFails(t *testing.T) {
  if _, err := ExtractText("fake.pdf", "application/pdf", []byte{0x00, 0xde, 0xad, 0xbe}); err == nil {
    t.Fatal("expected error when pdf magic is missing")
  }
}

func TestTextBearingMime(t *testing.T) {
  cases := []struct {
    name string
    mime string
    want bool
  }{
    {"doc.pdf", "application/pdf", true},
    {"doc.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", true},
    {"sheet.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", true},
    {"data.csv", "text/csv", true},
    {"notes.txt", "text/plain", true},
    {"page.html", "text/html", true},
    {"video.mp4", "video/mp4", false},
    {"img.png", "image/png", false},
    {"blob.bin", "application/octet-stream", false},
  }
  for _, c := range cases {
    if got := TextBearingMime(c.name, c.mime); got != c.want {
      t.Errorf("TextBearingMime(%q, %q) = %v, want %v", c.name, c.mime, got, c.want)
    }
  }
}
