package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// Exporter writes report artifacts under a base directory.
type Exporter struct {
	dir    string
	logger *slog.Logger
}

// NewExporter creates an exporter rooted at dir.
func NewExporter(dir string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{dir: dir, logger: logger}
}

// Export writes the HTML document, one CSV per exportable table and a single
// XLSX workbook for the report. It returns the paths written.
func (e *Exporter) Export(ctx context.Context, r *Report) ([]string, error) {
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return nil, fmt.Errorf("export %s: %w", r.ID, err)
	}

	var written []string

	html, err := RenderHTML(r)
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", r.ID, err)
	}
	htmlPath := filepath.Join(e.dir, r.ID+".html")
	if err := os.WriteFile(htmlPath, html, 0644); err != nil {
		return nil, fmt.Errorf("export %s: write html: %w", r.ID, err)
	}
	written = append(written, htmlPath)

	for _, tbl := range r.ExportTables() {
		path := filepath.Join(e.dir, fmt.Sprintf("%s_%s.csv", r.ID, tbl.ExportName))
		if err := e.writeCSV(path, tbl); err != nil {
			return nil, fmt.Errorf("export %s: %w", r.ID, err)
		}
		written = append(written, path)
	}

	if tables := r.ExportTables(); len(tables) > 0 {
		path := filepath.Join(e.dir, r.ID+".xlsx")
		if err := e.writeWorkbook(path, tables); err != nil {
			return nil, fmt.Errorf("export %s: %w", r.ID, err)
		}
		written = append(written, path)
	}

	e.logger.InfoContext(ctx, "report exported",
		slog.String("report", r.ID),
		slog.Int("artifacts", len(written)),
		slog.String("dir", e.dir))
	return written, nil
}

// writeCSV writes one table as a CSV file with a UTF-8 BOM so spreadsheet
// tools pick up the encoding.
func (e *Exporter) writeCSV(path string, tbl Table) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	defer file.Close()

	if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("write csv BOM: %w", err)
	}

	w := csv.NewWriter(file)
	if err := w.Write(tbl.Headers); err != nil {
		return fmt.Errorf("write csv headers: %w", err)
	}
	for i, row := range tbl.Rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	w.Flush()
	return w.Error()
}

// writeWorkbook writes every exportable table as a sheet of one workbook.
func (e *Exporter) writeWorkbook(path string, tables []Table) error {
	book := excelize.NewFile()
	defer book.Close()

	for i, tbl := range tables {
		sheet := tbl.ExportName
		if i == 0 {
			if err := book.SetSheetName("Sheet1", sheet); err != nil {
				return fmt.Errorf("workbook sheet %s: %w", sheet, err)
			}
		} else if _, err := book.NewSheet(sheet); err != nil {
			return fmt.Errorf("workbook sheet %s: %w", sheet, err)
		}

		header := make([]any, len(tbl.Headers))
		for j, h := range tbl.Headers {
			header[j] = h
		}
		if err := book.SetSheetRow(sheet, "A1", &header); err != nil {
			return fmt.Errorf("workbook sheet %s: %w", sheet, err)
		}

		for rowIdx, row := range tbl.Rows {
			cells := make([]any, len(row))
			for j, v := range row {
				cells[j] = v
			}
			cell, err := excelize.CoordinatesToCellName(1, rowIdx+2)
			if err != nil {
				return fmt.Errorf("workbook sheet %s: %w", sheet, err)
			}
			if err := book.SetSheetRow(sheet, cell, &cells); err != nil {
				return fmt.Errorf("workbook sheet %s: %w", sheet, err)
			}
		}
	}

	if err := book.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
