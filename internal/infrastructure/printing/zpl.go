package printing

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"unicode"

	"github.com/erp/labelstation/internal/domain/labeling"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// ItemNameMaxLineLength is the wrap width for the item name block
	ItemNameMaxLineLength = 28

	itemNameBaseY       = 60
	itemNameLineSpacing = 15
)

// labelTemplate is the RFID label document for the 42x20mm stock at 8 dpmm.
// Only the fields between braces vary per print; everything else is device setup.
const labelTemplate = `^XA
^RS,,,1,E,,,2
^RR10
^XZ
^XA
^SZ2^JMA
^MCY^PMN
^PW336^MTD
^MNW
^MMT
^ML177
^JZY
^LH0,0^LRN
^XZ
^XA
^DFE:SSFMT000.ZPL^FS
^FT28,31
^CI0
^A0N,17,23^FN1^FH\^FD{{.SKU}}^FS
^FT158,31
^A0N,17,23^FDExp: {{.ExpirationDate}}^FS
{{.ItemNameBlock}}
^FT84,140
^A0N,14,19^FD{{.InventoryBin}}^FS
^FO32,93
^BQN,2,2^FDLA,{{.TagID}}^FS
^FT83,117
^A0N,11,15^FD{{.TagID}}^FS
^RFW,H,1,2,1^FD2400^FS
^RFW,H,2,8,1^FD{{.TagID}}^FS
^XZ
^XA
^XFE:SSFMT000.ZPL^FS
^PQ1,0,1,Y
^XZ
`

// LabelFields are the per-print values substituted into the label document
type LabelFields struct {
	SKU            string
	ItemName       string
	TagID          labeling.TagID
	InventoryBin   labeling.InventoryBin
	ExpirationDate string // already formatted for print, e.g. "01 Jun 2025"
}

type templateData struct {
	SKU            string
	ExpirationDate string
	ItemNameBlock  string
	InventoryBin   string
	TagID          string
}

// ZPLRenderer renders label documents
type ZPLRenderer struct {
	tmpl *template.Template
}

// NewZPLRenderer creates a new label renderer
func NewZPLRenderer() *ZPLRenderer {
	return &ZPLRenderer{
		tmpl: template.Must(template.New("label").Parse(labelTemplate)),
	}
}

// Render produces the label document for one tag. Malformed fields degrade
// (an empty item name yields no name lines) instead of failing.
func (r *ZPLRenderer) Render(fields LabelFields) string {
	data := templateData{
		SKU:            sanitizeField(fields.SKU),
		ExpirationDate: sanitizeField(fields.ExpirationDate),
		ItemNameBlock:  ItemNameBlock(fields.ItemName),
		InventoryBin:   sanitizeField(fields.InventoryBin.String()),
		TagID:          sanitizeField(fields.TagID.String()),
	}
	var buf bytes.Buffer
	// The template is static and the data is plain strings, so execution cannot fail.
	_ = r.tmpl.Execute(&buf, data)
	return buf.String()
}

// ItemNameBlock renders the wrapped item name as one positioned text field per line
func ItemNameBlock(name string) string {
	lines := WrapWords(sanitizeField(name), ItemNameMaxLineLength)
	fields := make([]string, len(lines))
	for i, line := range lines {
		y := itemNameBaseY + i*itemNameLineSpacing
		fields[i] = fmt.Sprintf("^FT%d,%d^A0N,17,23^FD%s^FS", itemNameOffsetX(line), y, line)
	}
	return strings.Join(fields, "\n")
}

// itemNameOffsetX centres short lines more aggressively than long ones
func itemNameOffsetX(line string) int {
	switch n := len(line); {
	case n <= 15:
		return 120
	case n < 25:
		return 75
	default:
		return 40
	}
}

// WrapWords greedily packs whitespace separated words into lines of at most
// width characters. A word longer than width occupies its own line unbroken.
func WrapWords(text string, width int) []string {
	words := strings.Fields(text)
	lines := make([]string, 0, len(words))
	var current strings.Builder
	for _, word := range words {
		switch {
		case current.Len() == 0:
			current.WriteString(word)
		case current.Len()+1+len(word) <= width:
			current.WriteByte(' ')
			current.WriteString(word)
		default:
			lines = append(lines, current.String())
			current.Reset()
			current.WriteString(word)
		}
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}

// sanitizeField folds text to printable ASCII for the ^CI0 code page and
// removes the ZPL command prefixes so field data cannot inject commands.
func sanitizeField(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r == '^' || r == '~':
			return -1
		case r == '\t' || r == '\n' || r == '\r':
			return ' '
		case r < 0x20 || r > 0x7e:
			return -1
		}
		return r
	}, folded)
}
