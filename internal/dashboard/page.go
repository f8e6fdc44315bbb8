// Package dashboard turns a selection into a rendered page model. Every
// rerun is independent: the same state and collaborators give the same page.
package dashboard

import (
	"encoding/base64"
	"fmt"

	"github.com/dgnsrekt/sp500-explorer/internal/chart"
	"github.com/dgnsrekt/sp500-explorer/internal/table"
)

const (
	Title        = "S&P 500 App"
	SidebarTitle = "User Input Features"
	TableHeader  = "Display Companies in Selected Sector"
	ChartsHeader = "Stock Closing Price"
	SourceURL    = "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies"
)

// Description is the intro paragraph shown under the title.
var Description = []string{
	"This app retrieves the list of the S&P 500 (from Wikipedia) and its corresponding stock closing price (year-to-date)!",
	"Libraries: goquery, go-chart, chi, zap.",
}

// Options are the values offered by the sidebar controls.
type Options struct {
	Sectors      []string `json:"sectors"`
	Symbols      []string `json:"symbols"`
	MinCompanies int      `json:"min_companies"`
	MaxCompanies int      `json:"max_companies"`
}

// Selected mirrors the selection a page was built from.
type Selected struct {
	Sectors      []string `json:"sectors"`
	Symbols      []string `json:"symbols"`
	CompanyCount int      `json:"company_count"`
	ShowPlots    bool     `json:"show_plots"`
}

// Image is one rendered chart, embedded as a data URI.
type Image struct {
	Symbol      string `json:"symbol"`
	Title       string `json:"title,omitempty"`
	ContentType string `json:"content_type"`
	DataURI     string `json:"data_uri"`
}

type Page struct {
	Title        string       `json:"title"`
	Description  []string     `json:"description"`
	SourceURL    string       `json:"source_url"`
	Options      Options      `json:"options"`
	Selection    Selected     `json:"selection"`
	Table        *table.Table `json:"table,omitempty"`
	Rows         int          `json:"rows"`
	Columns      int          `json:"columns"`
	Dimension    string       `json:"dimension,omitempty"`
	DownloadLink string       `json:"download_link,omitempty"`
	Charts       []Image      `json:"charts,omitempty"`
	Missing      []string     `json:"missing,omitempty"`
	Error        string       `json:"error,omitempty"`
}

// Dimension formats a table shape the way the page reports it.
func Dimension(rows, cols int) string {
	return fmt.Sprintf("Data Dimension: %d rows and %d columns.", rows, cols)
}

func dataURI(format chart.Format, img []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", format.ContentType(), base64.StdEncoding.EncodeToString(img))
}
