// Package csvimport turns uploaded contact files into persisted contacts.
//
// The pipeline is strictly ordered: read rows, reject empty files, check the
// header, validate every row, and only when the whole file is clean archive
// it and save the upload with all of its contacts in one transaction.
package csvimport

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"contactos/pkg/apperr"
)

var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

// Row is one data row keyed by normalized header name. Line is the row number
// reported to clients, where the header is line 1.
type Row struct {
	Line   int
	Values map[string]string
}

// RowSource yields data rows lazily. Next returns io.EOF after the last row.
type RowSource interface {
	Header() ([]string, error)
	Next() (Row, error)
	Close() error
}

// OpenRows picks a row source from the file extension. Anything that is not
// a spreadsheet is read as CSV.
func OpenRows(fileName string, r io.Reader) (RowSource, error) {
	if strings.EqualFold(filepath.Ext(fileName), ".xlsx") {
		return NewSheetReader(r)
	}
	return NewReader(r), nil
}

// Reader reads CSV text whose first record is the header. Records whose
// cells are all blank are skipped and do not count towards row numbers.
type Reader struct {
	csv        *csv.Reader
	header     []string
	headerRead bool
	err        error
	rows       int
}

// NewReader wraps r. Nothing is read until Header or Next is called.
func NewReader(r io.Reader) *Reader {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = br.Discard(len(byteOrderMark))
	}
	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return &Reader{csv: cr}
}

// Header returns the normalized header names. A stream without any record
// yields a nil header and no error.
func (r *Reader) Header() ([]string, error) {
	if r.headerRead {
		return r.header, r.err
	}
	r.headerRead = true
	rec, err := r.csv.Read()
	switch {
	case err == io.EOF:
		return nil, nil
	case err != nil:
		r.err = apperr.MalformedInput(err)
		return nil, r.err
	}
	if err := checkEncoding(rec, 1); err != nil {
		r.err = err
		return nil, err
	}
	r.header = normalizeHeader(rec)
	return r.header, nil
}

// Next returns the next data row.
func (r *Reader) Next() (Row, error) {
	header, err := r.Header()
	if err != nil {
		return Row{}, err
	}
	if header == nil {
		return Row{}, io.EOF
	}
	var rec []string
	for {
		rec, err = r.csv.Read()
		if err == io.EOF {
			return Row{}, io.EOF
		}
		if err != nil {
			return Row{}, apperr.MalformedInput(err)
		}
		if !blankRecord(rec) {
			break
		}
	}
	r.rows++
	if err := checkEncoding(rec, r.rows+1); err != nil {
		return Row{}, err
	}
	return Row{Line: r.rows + 1, Values: zipRow(header, rec)}, nil
}

func (r *Reader) Close() error { return nil }

// checkEncoding rejects cells that are not valid UTF-8 or contain NUL bytes;
// the database refuses both in text columns.
func checkEncoding(rec []string, line int) error {
	for i, cell := range rec {
		if !utf8.ValidString(cell) {
			return apperr.MalformedInput(fmt.Errorf("line %d, column %d: invalid UTF-8", line, i+1))
		}
		if strings.IndexByte(cell, 0) >= 0 {
			return apperr.MalformedInput(fmt.Errorf("line %d, column %d: NUL byte", line, i+1))
		}
	}
	return nil
}

func normalizeHeader(raw []string) []string {
	out := make([]string, len(raw))
	for i, h := range raw {
		out[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return out
}

// zipRow maps cells onto header names. Missing trailing cells stay absent and
// cells beyond the header are dropped.
func zipRow(header, rec []string) map[string]string {
	values := make(map[string]string, len(header))
	for i, name := range header {
		if i >= len(rec) {
			break
		}
		if name == "" {
			continue
		}
		values[name] = rec[i]
	}
	return values
}
