package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Laporan"

// XLSXExporter renders tables into a single-sheet workbook. Numeric cells are written
// as numbers with a thousands-separated format so spreadsheet formulas keep working.
type XLSXExporter struct{}

// NewXLSXExporter builds an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// ContentType of the rendered output.
func (e *XLSXExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Extension of the rendered output.
func (e *XLSXExporter) Extension() string { return "xlsx" }

// Render writes the header on row 1, data from row 2 and the optional total row last.
func (e *XLSXExporter) Render(table Table) ([]byte, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#1B5E20"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    borders(),
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	numberStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4, Border: borders()})
	if err != nil {
		return nil, fmt.Errorf("number style: %w", err)
	}
	textStyle, err := f.NewStyle(&excelize.Style{Border: borders()})
	if err != nil {
		return nil, fmt.Errorf("text style: %w", err)
	}
	totalStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, NumFmt: 4, Border: borders()})
	if err != nil {
		return nil, fmt.Errorf("total style: %w", err)
	}

	for col, header := range table.Columns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("style header: %w", err)
		}
		width := float64(len([]rune(header)) + 4)
		if width < 10 {
			width = 10
		}
		name, _ := excelize.ColumnNumberToName(col + 1)
		if err := f.SetColWidth(sheetName, name, name, width); err != nil {
			return nil, fmt.Errorf("column width: %w", err)
		}
	}

	for r, row := range table.Rows {
		for col, raw := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, r+2)
			if err != nil {
				return nil, err
			}
			style := textStyle
			var value interface{} = CellText(raw)
			if n, ok := numeric(raw); ok {
				value = n
				style = numberStyle
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return nil, fmt.Errorf("write cell %s: %w", cell, err)
			}
			if err := f.SetCellStyle(sheetName, cell, cell, style); err != nil {
				return nil, fmt.Errorf("style cell %s: %w", cell, err)
			}
		}
	}

	if table.Total != nil {
		rowIdx := len(table.Rows) + 2
		total := table.TotalRow()
		for col, text := range total {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowIdx)
			var value interface{} = text
			if col == table.Total.Column {
				value = table.TotalValue()
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return nil, fmt.Errorf("write total: %w", err)
			}
			if err := f.SetCellStyle(sheetName, cell, cell, totalStyle); err != nil {
				return nil, fmt.Errorf("style total: %w", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func borders() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "#BDBDBD", Style: 1},
		{Type: "top", Color: "#BDBDBD", Style: 1},
		{Type: "right", Color: "#BDBDBD", Style: 1},
		{Type: "bottom", Color: "#BDBDBD", Style: 1},
	}
}
