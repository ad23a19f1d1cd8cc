package common

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/dslipak/pdf"
	log "github.com/sirupsen/logrus"
)

// ExtractRowsFromPDFReader renders every page of a PDF into text rows, one
// string per visual row, words joined by a single space.
func ExtractRowsFromPDFReader(reader io.Reader) ([]string, error) {
	var rAt io.ReaderAt
	var size int64

	switch v := reader.(type) {
	case io.ReaderAt:
		rAt = v
		seeker, ok := reader.(io.Seeker)
		if !ok {
			return nil, errors.New("reader is io.ReaderAt but not io.Seeker, cannot determine size")
		}
		cur, _ := seeker.Seek(0, io.SeekCurrent)
		end, err := seeker.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, err
		}
		if _, err := seeker.Seek(cur, io.SeekStart); err != nil {
			return nil, err
		}
		size = end
	default:
		buf := new(bytes.Buffer)
		if _, err := buf.ReadFrom(reader); err != nil {
			return nil, err
		}
		b := buf.Bytes()
		rAt = bytes.NewReader(b)
		size = int64(len(b))
	}

	r, err := pdf.NewReader(rAt, size)
	if err != nil {
		return nil, err
	}

	numPages := r.NumPage()
	rows := make([]string, 0, numPages*100)

	for no := 1; no <= numPages; no++ {
		page := r.Page(no)
		pageRows, err := page.GetTextByRow()
		if err != nil {
			log.WithField("page", no).Warnf("error getting text from page: %v", err)
			continue
		}

		for _, row := range pageRows {
			var builder strings.Builder
			builder.Grow(len(row.Content) * 20)

			for i, text := range row.Content {
				builder.WriteString(text.S)
				if i < len(row.Content)-1 {
					builder.WriteByte(' ')
				}
			}

			if builder.Len() > 0 {
				rows = append(rows, builder.String())
			}
		}
	}

	return rows, nil
}

// ExtractRowsFromPDF opens path and renders it with ExtractRowsFromPDFReader.
func ExtractRowsFromPDF(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ExtractRowsFromPDFReader(file)
}

// SplitLines normalises line endings and returns the trimmed, non-empty
// lines of text.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// IsPDF sniffs the PDF magic header.
func IsPDF(b []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(b, "\x00\t\r\n "), []byte("%PDF-"))
}
