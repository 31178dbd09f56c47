// Package textextract turns stored files into the plain text that is placed in
// LLM prompts.
package textextract

import (
	"archive/zip"
	"bytes"
	"mime"
	"path/filepath"
	"strings"
)

const (
	MIMEPDF  = "application/pdf"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Kind int

const (
	KindText Kind = iota
	KindPDF
	KindDOCX
	KindXLSX
)

// Detect picks the extractor from the content type, then the file name
// extension, then the leading magic bytes.
func Detect(contentType, filename string, data []byte) Kind {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch mediaType {
	case MIMEPDF:
		return KindPDF
	case MIMEDOCX:
		return KindDOCX
	case MIMEXLSX:
		return KindXLSX
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return KindPDF
	case ".docx":
		return KindDOCX
	case ".xlsx":
		return KindXLSX
	}

	switch {
	case bytes.HasPrefix(data, []byte("%PDF-")):
		return KindPDF
	case bytes.HasPrefix(data, []byte("PK\x03\x04")):
		return detectOfficeZip(data)
	}
	return KindText
}

// detectOfficeZip tells DOCX from XLSX by the part each package must contain.
func detectOfficeZip(data []byte) Kind {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return KindText
	}
	for _, f := range zr.File {
		switch f.Name {
		case "word/document.xml":
			return KindDOCX
		case "xl/workbook.xml":
			return KindXLSX
		}
	}
	return KindText
}

// Extract returns the text content of a file. Binary formats that fail to
// parse return an error; plain text never does.
func Extract(data []byte, contentType, filename string) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	switch Detect(contentType, filename, data) {
	case KindPDF:
		return extractPDF(data)
	case KindDOCX:
		return extractDOCX(data)
	case KindXLSX:
		return extractXLSX(data)
	default:
		return cleanText(decodeText(data)), nil
	}
}

// ContentTypeFor guesses a content type from a file name for uploads that do
// not declare one.
func ContentTypeFor(filename string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); ct != "" {
		return ct
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".docx":
		return MIMEDOCX
	case ".xlsx":
		return MIMEXLSX
	}
	return "application/octet-stream"
}
