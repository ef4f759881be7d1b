package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/FranksOps/uzhunt/internal/storage"
	"github.com/xuri/excelize/v2"
)

// DefaultDir is where reports are written when no directory is configured.
const DefaultDir = "results"

const sheetName = "Domains"

// Columns is the header row of the spreadsheet.
var Columns = []string{
	"Source",
	"Username",
	"Profile URL",
	"Domain",
	"Status",
	"Expiry Date",
	"Created Date",
	"Registrar",
}

var columnWidths = []float64{12, 20, 40, 20, 15, 15, 15, 25}

const (
	headerColor     = "366092"
	availableColor  = "C6EFCE"
	registeredColor = "FFC7CE"
)

// FileName returns the report file name for a run started at t.
func FileName(t time.Time) string {
	return "uz_domains_" + t.Format("20060102_150405") + ".xlsx"
}

// SaveFile writes records to a new spreadsheet in dir and returns its path.
func SaveFile(dir string, records []*storage.VerificationRecord, now time.Time) (string, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, FileName(now))
	f, err := build(records)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}
	return path, nil
}

// Write renders records as an xlsx workbook to w.
func Write(w io.Writer, records []*storage.VerificationRecord) error {
	f, err := build(records)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func build(records []*storage.VerificationRecord) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("context: %w", err)
	}

	if err := fill(f, records); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func fill(f *excelize.File, records []*storage.VerificationRecord) error {
	styles, err := newStyles(f)
	if err != nil {
		return err
	}

	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(Columns), 1)
	if err := f.SetCellStyle(sheetName, "A1", last, styles.header); err != nil {
		return fmt.Errorf("context: %w", err)
	}

	row := 2
	for _, r := range records {
		if r == nil {
			continue
		}
		values := []any{
			r.Source,
			r.Handle,
			r.OriginURL,
			r.Domain,
			string(r.Status),
			r.ExpiryDate,
			r.CreatedDate,
			r.Registrar,
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		end, _ := excelize.CoordinatesToCellName(len(Columns), row)
		if err := f.SetSheetRow(sheetName, start, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row, err)
		}
		if err := f.SetCellStyle(sheetName, start, end, styles.cell); err != nil {
			return fmt.Errorf("context: %w", err)
		}

		statusCell, _ := excelize.CoordinatesToCellName(5, row)
		switch r.Status {
		case storage.StatusAvailable:
			err = f.SetCellStyle(sheetName, statusCell, statusCell, styles.available)
		case storage.StatusRegistered:
			err = f.SetCellStyle(sheetName, statusCell, statusCell, styles.registered)
		}
		if err != nil {
			return fmt.Errorf("context: %w", err)
		}
		row++
	}

	for i, w := range columnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheetName, col, col, w); err != nil {
			return fmt.Errorf("context: %w", err)
		}
	}
	if err := f.SetRowHeight(sheetName, 1, 30); err != nil {
		return fmt.Errorf("context: %w", err)
	}

	// Keep the header visible while scrolling.
	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("context: %w", err)
	}
	return nil
}

type styleSet struct {
	header     int
	cell       int
	available  int
	registered int
}

func newStyles(f *excelize.File) (styleSet, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	cellAlign := &excelize.Alignment{Vertical: "center", WrapText: true}

	var s styleSet
	var err error

	s.header, err = f.NewStyle(&excelize.Style{
		Border:    border,
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerColor}, Pattern: 1},
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF", Size: 12},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return s, fmt.Errorf("failed to create header style: %w", err)
	}

	s.cell, err = f.NewStyle(&excelize.Style{Border: border, Alignment: cellAlign})
	if err != nil {
		return s, fmt.Errorf("failed to create cell style: %w", err)
	}

	s.available, err = f.NewStyle(&excelize.Style{
		Border:    border,
		Alignment: cellAlign,
		Fill:      excelize.Fill{Type: "pattern", Color: []string{availableColor}, Pattern: 1},
	})
	if err != nil {
		return s, fmt.Errorf("failed to create status style: %w", err)
	}

	s.registered, err = f.NewStyle(&excelize.Style{
		Border:    border,
		Alignment: cellAlign,
		Fill:      excelize.Fill{Type: "pattern", Color: []string{registeredColor}, Pattern: 1},
	})
	if err != nil {
		return s, fmt.Errorf("failed to create status style: %w", err)
	}

	return s, nil
}
