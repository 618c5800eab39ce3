package csvimport

import (
	"fmt"
	"io"
	"strings"

	"contactos/pkg/apperr"

	"github.com/xuri/excelize/v2"
)

// SheetReader reads the first worksheet of an .xlsx workbook with the same
// contract as Reader. Rows whose cells are all blank are skipped.
type SheetReader struct {
	file       *excelize.File
	rows       *excelize.Rows
	header     []string
	headerRead bool
	err        error
	count      int
}

// NewSheetReader opens the workbook held in r.
func NewSheetReader(r io.Reader) (*SheetReader, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperr.MalformedInput(err)
	}
	sr := &SheetReader{file: f}
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return sr, nil
	}
	rows, err := f.Rows(sheets[0])
	if err != nil {
		_ = f.Close()
		return nil, apperr.MalformedInput(fmt.Errorf("open sheet %q: %w", sheets[0], err))
	}
	sr.rows = rows
	return sr, nil
}

func (s *SheetReader) nextRecord() ([]string, error) {
	if s.rows == nil {
		return nil, io.EOF
	}
	for s.rows.Next() {
		cols, err := s.rows.Columns()
		if err != nil {
			return nil, apperr.MalformedInput(err)
		}
		if blankRecord(cols) {
			continue
		}
		return cols, nil
	}
	if err := s.rows.Error(); err != nil {
		return nil, apperr.MalformedInput(err)
	}
	return nil, io.EOF
}

func (s *SheetReader) Header() ([]string, error) {
	if s.headerRead {
		return s.header, s.err
	}
	s.headerRead = true
	rec, err := s.nextRecord()
	switch {
	case err == io.EOF:
		return nil, nil
	case err != nil:
		s.err = err
		return nil, err
	}
	if err := checkEncoding(rec, 1); err != nil {
		s.err = err
		return nil, err
	}
	s.header = normalizeHeader(rec)
	return s.header, nil
}

func (s *SheetReader) Next() (Row, error) {
	header, err := s.Header()
	if err != nil {
		return Row{}, err
	}
	if header == nil {
		return Row{}, io.EOF
	}
	rec, err := s.nextRecord()
	if err != nil {
		return Row{}, err
	}
	s.count++
	if err := checkEncoding(rec, s.count+1); err != nil {
		return Row{}, err
	}
	return Row{Line: s.count + 1, Values: zipRow(header, rec)}, nil
}

func (s *SheetReader) Close() error {
	if s.rows != nil {
		_ = s.rows.Close()
	}
	return s.file.Close()
}

func blankRecord(cols []string) bool {
	for _, c := range cols {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
