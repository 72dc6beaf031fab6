package feed

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/couchcryptid/vaccine-data-etl/internal/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseCSV splits a feed body into rows. Rows may have different lengths;
// the district feed's blocks are addressed by position, not by header name.
func ParseCSV(data []byte) ([]domain.RawRow, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.ReuseRecord = false

	var rows []domain.RawRow
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		rows = append(rows, domain.RawRow(rec))
	}
	if len(rows) == 0 {
		return nil, errors.New("parse csv: empty feed")
	}
	return rows, nil
}
