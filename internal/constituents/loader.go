// Package constituents loads the index constituent table from a remote
// HTML document.
package constituents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/dgnsrekt/sp500-explorer/internal/table"
)

// DefaultURL is the public list of S&P 500 companies.
const DefaultURL = "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies"

// Source returns the table at index among all tables of the document at url.
type Source interface {
	Load(ctx context.Context, url string, index int) (*table.Table, error)
}

// Downloader is implemented by api.HTTPClient.
type Downloader interface {
	DownloadFile(ctx context.Context, url string, dest io.Writer) (int64, error)
}

type Loader struct {
	client    Downloader
	keyColumn string
	logger    *zap.Logger
}

// NewLoader creates a Loader. When keyColumn is set, rows repeating a key
// already seen are dropped so keys stay unique.
func NewLoader(client Downloader, keyColumn string, logger *zap.Logger) *Loader {
	return &Loader{client: client, keyColumn: keyColumn, logger: logger}
}

var _ Source = (*Loader)(nil)

func (l *Loader) Load(ctx context.Context, url string, index int) (*table.Table, error) {
	var buf bytes.Buffer
	size, err := l.client.DownloadFile(ctx, url, &buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	l.logger.Debug("document fetched", zap.String("url", url), zap.Int64("bytes", size))

	tables, err := ParseTables(&buf)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, ErrNoTables
	}
	if index < 0 || index >= len(tables) {
		return nil, fmt.Errorf("%w: index %d, document has %d tables", ErrTableIndexOutOfRange, index, len(tables))
	}

	t := tables[index]
	if l.keyColumn == "" {
		return t, nil
	}

	deduped, dropped, err := t.DedupeBy(l.keyColumn)
	if err != nil {
		return nil, err
	}
	if len(dropped) > 0 {
		l.logger.Warn("dropped duplicate keys", zap.String("column", l.keyColumn), zap.Strings("keys", dropped))
	}
	return deduped, nil
}

// ParseTables extracts every <table> of an HTML document. The first row of
// each table is its header.
func ParseTables(r io.Reader) ([]*table.Table, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}

	var tables []*table.Table
	doc.Find("table").Each(func(_ int, s *goquery.Selection) {
		var header []string
		var rows [][]string
		s.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			// rows of nested tables belong to those tables
			if tr.Closest("table").Get(0) != s.Get(0) {
				return
			}
			cells := rowCells(tr)
			if len(cells) == 0 {
				return
			}
			if header == nil {
				header = cells
				return
			}
			rows = append(rows, cells)
		})
		if header == nil {
			return
		}
		tables = append(tables, table.New(header, rows))
	})
	return tables, nil
}

func rowCells(tr *goquery.Selection) []string {
	var cells []string
	tr.ChildrenFiltered("th, td").Each(func(_ int, cell *goquery.Selection) {
		cell.Find("sup.reference").Remove()
		text := strings.Join(strings.Fields(cell.Text()), " ")

		span := 1
		if v, ok := cell.Attr("colspan"); ok {
			if n, err := strconv.Atoi(v); err == nil && n > 1 {
				span = n
			}
		}
		for i := 0; i < span; i++ {
			cells = append(cells, text)
		}
	})
	return cells
}
