package services

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pageSource is the slice of a PDF reader the extractor needs. Pages are 1-indexed.
type pageSource interface {
	NumPage() int
	PageText(i int) (text string, ok bool, err error)
}

type pdfPages struct {
	reader *pdf.Reader
}

func (p pdfPages) NumPage() int { return p.reader.NumPage() }

func (p pdfPages) PageText(i int) (string, bool, error) {
	page := p.reader.Page(i)
	if page.V.IsNull() {
		return "", false, nil
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

type FileExtractService struct{}

func NewFileExtractService() *FileExtractService {
	return &FileExtractService{}
}

// ExtractPDF returns the text of every page in order, concatenated with no
// separator. A document without a text layer yields "" and no error.
func (s *FileExtractService) ExtractPDF(data []byte) (text string, err error) {
	if len(data) == 0 {
		return "", &ExtractionError{Err: fmt.Errorf("empty file")}
	}

	// The pdf package panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = &ExtractionError{Err: fmt.Errorf("malformed pdf: %v", r)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &ExtractionError{Err: err}
	}

	return concatPages(pdfPages{reader: reader})
}

func concatPages(src pageSource) (string, error) {
	var b strings.Builder
	totalPage := src.NumPage()
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		content, ok, err := src.PageText(pageIndex)
		if err != nil {
			return "", &ExtractionError{Err: fmt.Errorf("page %d: %w", pageIndex, err)}
		}
		if !ok {
			continue
		}
		b.WriteString(content)
	}
	return b.String(), nil
}

// IsPDF checks the magic bytes first and falls back to the file extension.
func IsPDF(head []byte, filename string) bool {
	if bytes.HasPrefix(head, []byte("%PDF-")) {
		return true
	}
	if http.DetectContentType(head) == "application/pdf" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(filename), ".pdf")
}
