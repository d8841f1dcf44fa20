package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"go.uber.org/zap"
)

const (
	logoImageName = "letterhead-logo"
	maxLogoBytes  = 2 << 20
	headerHeight  = 8.0
	rowHeight     = 7.0
)

// Letterhead is printed at the top of the first page.
type Letterhead struct {
	Name    string
	Address string
	LogoURL string
}

// PDFExporter renders tables into a paginated A4 document with letterhead,
// repeated table header, optional total row and a print-timestamp footer.
type PDFExporter struct {
	letterhead  Letterhead
	client      *http.Client
	logoTimeout time.Duration
	logger      *zap.Logger
}

// NewPDFExporter constructs a PDF exporter. The logo is fetched per render, bounded by logoTimeout.
func NewPDFExporter(letterhead Letterhead, logoTimeout time.Duration, logger *zap.Logger) *PDFExporter {
	if logoTimeout <= 0 {
		logoTimeout = 3 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PDFExporter{
		letterhead:  letterhead,
		client:      &http.Client{},
		logoTimeout: logoTimeout,
		logger:      logger,
	}
}

// ContentType of the rendered output.
func (e *PDFExporter) ContentType() string { return "application/pdf" }

// Extension of the rendered output.
func (e *PDFExporter) Extension() string { return "pdf" }

// Render creates the PDF. A logo that cannot be loaded is skipped.
func (e *PDFExporter) Render(ctx context.Context, table Table) ([]byte, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}

	orientation := "P"
	if len(table.Columns) > 6 {
		orientation = "L"
	}
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(false, 15)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	printed := formatTimestamp(table.printedAt())
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 8)
		left, _, _, _ := pdf.GetMargins()
		pdf.CellFormat(0, 5, tr("Dicetak: "+printed), "", 0, "L", false, 0, "")
		pdf.SetX(left)
		pdf.CellFormat(0, 5, fmt.Sprintf("Halaman %d/{nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AddPage()

	logo := e.loadLogo(ctx, pdf)
	e.drawLetterhead(pdf, tr, logo)

	if table.Title != "" {
		pdf.SetFont("Arial", "B", 13)
		pdf.CellFormat(0, 8, tr(strings.ToUpper(table.Title)), "", 1, "C", false, 0, "")
	}
	if table.Subtitle != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, tr(table.Subtitle), "", 1, "C", false, 0, "")
	}
	if len(table.Info) > 0 {
		pdf.Ln(2)
		pdf.SetFont("Arial", "", 9)
		for _, kv := range table.Info {
			pdf.CellFormat(35, 5, tr(kv.Key), "", 0, "L", false, 0, "")
			pdf.CellFormat(0, 5, tr(": "+kv.Value), "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(3)

	pageWidth, pageHeight := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	widths := columnWidths(table, pageWidth-left-right)
	limit := pageHeight - 20

	drawHeader := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(27, 94, 32)
		pdf.SetTextColor(255, 255, 255)
		for i, header := range table.Columns {
			pdf.CellFormat(widths[i], headerHeight, tr(header), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont("Arial", "", 8)
	}
	drawHeader()

	for _, row := range table.Rows {
		if pdf.GetY()+rowHeight > limit {
			pdf.AddPage()
			drawHeader()
		}
		for i, cell := range row {
			align := "L"
			if _, ok := numeric(cell); ok {
				align = "R"
			}
			pdf.CellFormat(widths[i], rowHeight, tr(fitText(pdf, CellText(cell), widths[i])), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	if total := table.TotalRow(); total != nil {
		if pdf.GetY()+rowHeight > limit {
			pdf.AddPage()
			drawHeader()
		}
		pdf.SetFont("Arial", "B", 8)
		for i, text := range total {
			align := "L"
			if i == table.Total.Column {
				align = "R"
			}
			pdf.CellFormat(widths[i], rowHeight, tr(text), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) drawLetterhead(pdf *gofpdf.Fpdf, tr func(string) string, logo bool) {
	if e.letterhead.Name == "" && !logo {
		return
	}
	top := pdf.GetY()
	if logo {
		pdf.ImageOptions(logoImageName, 10, top, 18, 18, false, gofpdf.ImageOptions{}, 0, "")
	}
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, tr(e.letterhead.Name), "", 1, "C", false, 0, "")
	if e.letterhead.Address != "" {
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 5, tr(e.letterhead.Address), "", 1, "C", false, 0, "")
	}
	y := top + 20
	if pdf.GetY() > y {
		y = pdf.GetY() + 2
	}
	pageWidth, _ := pdf.GetPageSize()
	pdf.SetLineWidth(0.6)
	pdf.Line(10, y, pageWidth-10, y)
	pdf.SetLineWidth(0.2)
	pdf.SetY(y + 3)
}

// loadLogo registers the letterhead logo on pdf and reports whether it is usable.
func (e *PDFExporter) loadLogo(ctx context.Context, pdf *gofpdf.Fpdf) bool {
	if e.letterhead.LogoURL == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, e.logoTimeout)
	defer cancel()

	data, err := e.fetchLogo(ctx)
	if err != nil {
		e.logger.Warn("letterhead logo unavailable", zap.String("url", e.letterhead.LogoURL), zap.Error(err))
		return false
	}
	imageType := imageTypeOf(data)
	if imageType == "" {
		e.logger.Warn("letterhead logo has unsupported format", zap.String("url", e.letterhead.LogoURL))
		return false
	}
	pdf.RegisterImageOptionsReader(logoImageName, gofpdf.ImageOptions{ImageType: imageType}, bytes.NewReader(data))
	if err := pdf.Error(); err != nil {
		e.logger.Warn("letterhead logo rejected", zap.Error(err))
		pdf.ClearError()
		return false
	}
	return true
}

func (e *PDFExporter) fetchLogo(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.letterhead.LogoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxLogoBytes))
}

func imageTypeOf(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/png":
		return "PNG"
	case "image/jpeg":
		return "JPG"
	case "image/gif":
		return "GIF"
	default:
		return ""
	}
}

// columnWidths splits the printable width proportionally to the longest text per column.
func columnWidths(table Table, available float64) []float64 {
	weights := make([]float64, len(table.Columns))
	for i, header := range table.Columns {
		weights[i] = float64(len([]rune(header)))
	}
	for _, row := range table.Rows {
		for i, cell := range row {
			if l := float64(len([]rune(CellText(cell)))); l > weights[i] {
				weights[i] = l
			}
		}
	}
	var sum float64
	for i := range weights {
		if weights[i] < 4 {
			weights[i] = 4
		}
		if weights[i] > 40 {
			weights[i] = 40
		}
		sum += weights[i]
	}
	widths := make([]float64, len(weights))
	for i, w := range weights {
		widths[i] = available * w / sum
	}
	return widths
}

func fitText(pdf *gofpdf.Fpdf, text string, width float64) string {
	if pdf.GetStringWidth(text) <= width-2 {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > width-2 {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
