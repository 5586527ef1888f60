// Package csvx reads and writes the vault bulk-transfer format: one record per
// line, three double-quoted fields, UTF-8:
//
//	"service","login","password"
//
// Lines are parsed independently, so a malformed line is reported and skipped
// without affecting its neighbours.
package csvx

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Row is one parsed line.
type Row struct {
	Service  string
	Login    string
	Password string
}

// Skipped describes a line that could not be turned into a Row.
type Skipped struct {
	Line   int
	Reason string
}

// Result is the outcome of reading a whole stream.
type Result struct {
	Rows    []Row
	Skipped []Skipped
}

// ReservedSeparator may not appear inside any field.
const ReservedSeparator = "\x1f"

const bom = "\ufeff"

// Read parses r line by line. Only I/O errors are returned; malformed lines
// end up in Result.Skipped. Blank lines are ignored.
func Read(r io.Reader) (*Result, error) {
	br := bufio.NewReader(r)
	res := &Result{}

	for n := 1; ; n++ {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read line %d: %w", n, err)
		}
		if n == 1 {
			line = strings.TrimPrefix(line, bom)
		}

		if trimmed := strings.TrimRight(line, "\r\n"); strings.TrimSpace(trimmed) != "" {
			row, reason := parseLine(trimmed)
			if reason != "" {
				res.Skipped = append(res.Skipped, Skipped{Line: n, Reason: reason})
			} else {
				res.Rows = append(res.Rows, row)
			}
		}

		if errors.Is(err, io.EOF) {
			return res, nil
		}
	}
}

func parseLine(line string) (Row, string) {
	cr := csv.NewReader(strings.NewReader(line))
	cr.FieldsPerRecord = -1

	fields, err := cr.Read()
	if err != nil {
		return Row{}, err.Error()
	}
	if _, err := cr.Read(); !errors.Is(err, io.EOF) {
		return Row{}, "line spans more than one record"
	}
	if len(fields) != 3 {
		return Row{}, fmt.Sprintf("expected 3 fields, got %d", len(fields))
	}
	for _, f := range fields {
		if f == "" {
			return Row{}, "empty field"
		}
		if strings.Contains(f, ReservedSeparator) {
			return Row{}, "field contains reserved separator"
		}
	}
	return Row{Service: fields[0], Login: fields[1], Password: fields[2]}, ""
}

// Writer emits rows in the transfer format, always quoting every field.
type Writer struct {
	w *bufio.Writer
}

// NewWriter returns a Writer on w. Call Flush when done.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Write emits one row.
func (w *Writer) Write(r Row) error {
	if strings.Contains(r.Service+r.Login+r.Password, ReservedSeparator) {
		return errors.New("csvx: field contains reserved separator")
	}
	_, err := w.w.WriteString(quote(r.Service) + "," + quote(r.Login) + "," + quote(r.Password) + "\n")
	return err
}

// Flush writes buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}
