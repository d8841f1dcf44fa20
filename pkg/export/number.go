package export

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.Indonesian)

// FormatNumber renders v with Indonesian separators: 1250000 -> "1.250.000", 80.5 -> "80,5".
// At most two fraction digits are kept.
func FormatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return printer.Sprintf("%d", int64(v))
	}
	return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
}

// FormatCurrency renders an amount in rupiah.
func FormatCurrency(v float64) string {
	return "Rp " + FormatNumber(v)
}

// CellText renders one cell for text outputs.
func CellText(cell interface{}) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return v
	case *float64:
		if v == nil {
			return ""
		}
		return FormatNumber(*v)
	case time.Time:
		return v.Format("02-01-2006")
	case fmt.Stringer:
		return v.String()
	}
	if n, ok := numeric(cell); ok {
		return FormatNumber(n)
	}
	return fmt.Sprint(cell)
}

func formatTimestamp(t time.Time) string {
	return t.Format("02-01-2006 15:04")
}
