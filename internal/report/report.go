// Package report assembles, renders and exports the narrative analytics
// reports. A Report is a tree of sections holding tables, sparklines and
// prose; renderers turn it into HTML, CSV and XLSX artifacts.
package report

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Table is a titled grid of pre-formatted cells. Tables with a non-empty
// ExportName are also written as standalone CSV files and workbook sheets.
type Table struct {
	Title      string     `json:"title"`
	Headers    []string   `json:"headers"`
	Rows       [][]string `json:"rows"`
	ExportName string     `json:"export_name,omitempty"`
}

// Sparkline is a small inline series chart rendered as SVG.
type Sparkline struct {
	Title  string    `json:"title"`
	Values []float64 `json:"values"`
}

// Section is one narrative block of a report.
type Section struct {
	Title      string      `json:"title"`
	Narrative  []string    `json:"narrative,omitempty"`
	Tables     []Table     `json:"tables,omitempty"`
	Sparklines []Sparkline `json:"sparklines,omitempty"`
}

// Report is a fully built analytics report, ready for rendering.
type Report struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	GeneratedAt time.Time `json:"generated_at"`
	Seed        int64     `json:"seed"`
	Rows        int       `json:"rows"`
	Sections    []Section `json:"sections"`
	// Warnings collects non-fatal pipeline notes, shown as footnotes.
	Warnings []string `json:"warnings,omitempty"`
}

// AddSection appends a section and returns a pointer to it for filling.
func (r *Report) AddSection(title string, narrative ...string) *Section {
	r.Sections = append(r.Sections, Section{Title: title, Narrative: narrative})
	return &r.Sections[len(r.Sections)-1]
}

// Warnf records a formatted footnote warning.
func (r *Report) Warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// ExportTables returns the tables flagged for standalone export, in order.
func (r *Report) ExportTables() []Table {
	var out []Table
	for _, sec := range r.Sections {
		for _, tbl := range sec.Tables {
			if tbl.ExportName != "" {
				out = append(out, tbl)
			}
		}
	}
	return out
}

// fnum formats a float for table cells: fixed 4 decimals, empty for NaN.
func fnum(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// fpct formats a ratio as a percentage cell.
func fpct(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(100*v, 'f', 1, 64) + "%"
}
