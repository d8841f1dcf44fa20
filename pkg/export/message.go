package export

import (
	"fmt"
	"net/url"
	"strings"
)

// MessageRenderer renders tables as WhatsApp-flavoured plain text (*bold*, _italic_).
type MessageRenderer struct{}

// NewMessageRenderer builds a message renderer.
func NewMessageRenderer() *MessageRenderer {
	return &MessageRenderer{}
}

// ContentType of the rendered output.
func (r *MessageRenderer) ContentType() string { return "text/plain; charset=utf-8" }

// Extension of the rendered output.
func (r *MessageRenderer) Extension() string { return "txt" }

// Render lists every row as a numbered entry of "Column: value" pairs in column order.
func (r *MessageRenderer) Render(table Table) ([]byte, error) {
	text, err := r.Text(table)
	if err != nil {
		return nil, err
	}
	return []byte(text), nil
}

// Text is Render returning a string.
func (r *MessageRenderer) Text(table Table) (string, error) {
	if err := table.Validate(); err != nil {
		return "", err
	}
	var b strings.Builder
	if table.Title != "" {
		fmt.Fprintf(&b, "*%s*\n", table.Title)
	}
	if table.Subtitle != "" {
		b.WriteString(table.Subtitle + "\n")
	}
	for _, kv := range table.Info {
		fmt.Fprintf(&b, "%s: %s\n", kv.Key, kv.Value)
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	for i, row := range table.Rows {
		parts := make([]string, 0, len(row))
		for c, cell := range row {
			parts = append(parts, fmt.Sprintf("%s: %s", table.Columns[c], CellText(cell)))
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.Join(parts, " | "))
	}
	if table.Total != nil {
		label := table.Total.Label
		if label == "" {
			label = "Total"
		}
		fmt.Fprintf(&b, "\n*%s %s*: %s\n", label, table.Columns[table.Total.Column], FormatNumber(table.TotalValue()))
	}
	fmt.Fprintf(&b, "\n_Dicetak: %s_", formatTimestamp(table.printedAt()))
	return b.String(), nil
}

// NormalizePhone converts local numbers to the international form wa.me expects:
// "0812-3456" -> "628123456", "+62 812" -> "62812".
func NormalizePhone(phone string) string {
	digits := make([]rune, 0, len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	s := string(digits)
	switch {
	case s == "":
		return ""
	case strings.HasPrefix(s, "0"):
		return "62" + s[1:]
	case strings.HasPrefix(s, "8"):
		return "62" + s
	default:
		return s
	}
}

// WhatsAppLink builds a wa.me deep link with the percent-encoded message.
// Without a phone number the link opens the contact picker.
func WhatsAppLink(phone, text string) string {
	encoded := strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
	number := NormalizePhone(phone)
	if number == "" {
		return "https://wa.me/?text=" + encoded
	}
	return "https://wa.me/" + number + "?text=" + encoded
}
