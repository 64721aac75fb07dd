package dataset

import "fmt"

// Format identifies the on-the-wire encoding of a dataset.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Source describes one of the fixed dataset endpoints the reports consume.
type Source struct {
	ID          string
	Description string
	URL         string
	Format      Format
	// Target is the column the report models against.
	Target string
	// DateColumn names the observation date column for time-series sources.
	DateColumn string
}

// The three report datasets. URLs are fixed; the fetcher caches downloads
// under the configured data directory.
var sources = []Source{
	{
		ID:          "stocks",
		Description: "daily closing prices for a single listed stock",
		URL:         "https://datasets.insightlab.dev/stocks/daily_close.csv",
		Format:      FormatCSV,
		Target:      "close",
		DateColumn:  "date",
	},
	{
		ID:          "loans",
		Description: "historical loan applications with approval outcome",
		URL:         "https://datasets.insightlab.dev/loans/applications.csv",
		Format:      FormatCSV,
		Target:      "approved",
	},
	{
		ID:          "insurance",
		Description: "insurance policies with claim occurrence and amount",
		URL:         "https://datasets.insightlab.dev/insurance/claims.xlsx",
		Format:      FormatXLSX,
		Target:      "claim_amount",
	},
}

// Sources returns the registered dataset sources.
func Sources() []Source {
	out := make([]Source, len(sources))
	copy(out, sources)
	return out
}

// Lookup returns the source with the given id.
func Lookup(id string) (Source, error) {
	for _, s := range sources {
		if s.ID == id {
			return s, nil
		}
	}
	return Source{}, fmt.Errorf("unknown dataset %q", id)
}
