// Package export turns tables and price series into downloadable artifacts.
package export

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"errors"
	"fmt"
	"regexp"

	"github.com/dgnsrekt/sp500-explorer/internal/table"
)

const (
	Filename = "SP500.csv"
	MIMEType = "file/csv"
	LinkText = "Download CSV File"
)

var ErrMalformedLink = errors.New("malformed download link")

var linkPattern = regexp.MustCompile(`href="data:` + regexp.QuoteMeta(MIMEType) + `;base64,([A-Za-z0-9+/=]*)"`)

// CSV serializes t with a header row and no index column.
func CSV(t *table.Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Columns); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return nil, fmt.Errorf("writing rows: %w", err)
	}
	return buf.Bytes(), nil
}

// DownloadLink encodes t as base64 CSV inside a data-URI anchor.
// The whole table is held in memory.
func DownloadLink(t *table.Table) (string, error) {
	data, err := CSV(t)
	if err != nil {
		return "", err
	}
	b64 := base64.StdEncoding.EncodeToString(data)
	return fmt.Sprintf(`<a href="data:%s;base64,%s" download="%s">%s</a>`, MIMEType, b64, Filename, LinkText), nil
}

// DecodeLink reverses DownloadLink.
func DecodeLink(link string) (*table.Table, error) {
	m := linkPattern.FindStringSubmatch(link)
	if m == nil {
		return nil, ErrMalformedLink
	}
	data, err := base64.StdEncoding.DecodeString(m[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedLink, err)
	}
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: missing header", ErrMalformedLink)
	}
	return table.New(records[0], records[1:]), nil
}
