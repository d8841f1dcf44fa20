package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleTable() Table {
	return Table{
		Title:    "Rekap Anggaran",
		Subtitle: "Tahun 2024",
		Info:     []KeyValue{{Key: "Bidang", Value: "Umum"}},
		Columns:  []string{"No", "Uraian", "Jumlah"},
		Rows: [][]interface{}{
			{1, "Kitab", 750000},
			{2, "Seragam", 500000.0},
		},
		Total:     &Total{Label: "Total", Column: 2},
		PrintedAt: time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC),
	}
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "1.250.000", FormatNumber(1250000))
	assert.Equal(t, "80,5", FormatNumber(80.5))
	assert.Equal(t, "0", FormatNumber(0))
	assert.Equal(t, "Rp 15.000", FormatCurrency(15000))
}

func TestCellText(t *testing.T) {
	var missing *float64
	score := 87.25
	assert.Equal(t, "", CellText(nil))
	assert.Equal(t, "", CellText(missing))
	assert.Equal(t, "87,25", CellText(&score))
	assert.Equal(t, "05-01-2024", CellText(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "abc", CellText("abc"))
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleTable())
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"No", "Uraian", "Jumlah"}, records[0])
	assert.Equal(t, []string{"1", "Kitab", "750.000"}, records[1])
	assert.Equal(t, []string{"Total", "", "1.250.000"}, records[3])
}

func TestCSVExporterCustomDelimiter(t *testing.T) {
	exporter := &CSVExporter{Comma: ';'}
	out, err := exporter.Render(sampleTable())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "No;Uraian;Jumlah\n"))
}

func TestXLSXExporterRender(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleTable())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"No", "Uraian", "Jumlah"}, rows[0])
	assert.Equal(t, "Kitab", rows[1][1])

	raw, err := f.GetCellValue(sheetName, "C4", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "1250000", raw)
}

func TestPDFExporterSkipsUnavailableLogo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	exporter := NewPDFExporter(Letterhead{Name: "Pondok Tahfidz", Address: "Jl. Contoh 1", LogoURL: srv.URL + "/logo.png"}, time.Second, nil)
	out, err := exporter.Render(context.Background(), sampleTable())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDFExporterPaginatesLongTables(t *testing.T) {
	table := sampleTable()
	table.Rows = nil
	for i := 0; i < 120; i++ {
		table.Rows = append(table.Rows, []interface{}{i + 1, "Baris", 1000})
	}
	out, err := NewPDFExporter(Letterhead{}, time.Second, nil).Render(context.Background(), table)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRenderersRejectEmptyTables(t *testing.T) {
	empty := sampleTable()
	empty.Rows = nil

	_, err := NewCSVExporter().Render(empty)
	assert.True(t, errors.Is(err, ErrNothingToExport))
	_, err = NewXLSXExporter().Render(empty)
	assert.True(t, errors.Is(err, ErrNothingToExport))
	_, err = NewPDFExporter(Letterhead{}, time.Second, nil).Render(context.Background(), empty)
	assert.True(t, errors.Is(err, ErrNothingToExport))
	_, err = NewMessageRenderer().Render(empty)
	assert.True(t, errors.Is(err, ErrNothingToExport))
}

func TestValidateRejectsRaggedRows(t *testing.T) {
	table := sampleTable()
	table.Rows = append(table.Rows, []interface{}{"x"})
	err := table.Validate()
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNothingToExport))
}

func TestTotalRowOnFirstColumnMovesLabel(t *testing.T) {
	table := Table{Columns: []string{"Jumlah", "Ket"}, Rows: [][]interface{}{{10, "a"}, {5, "b"}}, Total: &Total{Column: 0}}
	assert.Equal(t, []string{"15", "Total"}, table.TotalRow())
}

func TestMessageRendererText(t *testing.T) {
	text, err := NewMessageRenderer().Text(sampleTable())
	require.NoError(t, err)
	assert.Contains(t, text, "*Rekap Anggaran*")
	assert.Contains(t, text, "1. No: 1 | Uraian: Kitab | Jumlah: 750.000")
	assert.Contains(t, text, "*Total Jumlah*: 1.250.000")
	assert.Contains(t, text, "_Dicetak: 01-03-2024 08:30_")
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "6281234567", NormalizePhone("0812-3456-7"))
	assert.Equal(t, "6281234567", NormalizePhone("+62 812 3456 7"))
	assert.Equal(t, "6281234567", NormalizePhone("81234567"))
	assert.Equal(t, "", NormalizePhone("-"))
}

func TestWhatsAppLink(t *testing.T) {
	link := WhatsAppLink("0812", "Assalamu'alaikum & salam\nhafalan")
	assert.Equal(t, "https://wa.me/62812?text=Assalamu%27alaikum%20%26%20salam%0Ahafalan", link)
	assert.Equal(t, "https://wa.me/?text=hai", WhatsAppLink("", "hai"))
}
