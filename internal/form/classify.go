// Package form turns catalog columns into input fields: a semantic input
// kind per column, labels and rendered descriptions, and validation of
// submitted values before any statement is built.
package form

import "github.com/koustreak/mngr/internal/catalog"

// InputKind is the semantic input classification of a column.
type InputKind int

const (
	ShortText InputKind = iota
	LongText
	Number
	Boolean
	Date
	DateTime
)

func (k InputKind) String() string {
	switch k {
	case LongText:
		return "long-text"
	case Number:
		return "number"
	case Boolean:
		return "boolean"
	case Date:
		return "date"
	case DateTime:
		return "datetime"
	default:
		return "short-text"
	}
}

// MarshalText renders the kind by name in JSON output.
func (k InputKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// HTMLType is the HTML input type a client should render for the kind.
func (k InputKind) HTMLType() string {
	switch k {
	case LongText:
		return "textarea"
	case Number:
		return "number"
	case Boolean:
		return "checkbox"
	case Date:
		return "date"
	case DateTime:
		return "datetime-local"
	default:
		return "text"
	}
}

// Classification is the input kind of a column and whether a value is
// mandatory.
type Classification struct {
	Kind     InputKind `json:"kind"`
	Required bool      `json:"required"`
}

// kinds maps canonical type names, as format_type spells them. Anything
// not listed is ShortText.
var kinds = map[string]InputKind{
	"boolean":                  Boolean,
	"date":                     Date,
	"integer":                  Number,
	"bigint":                   Number,
	"smallint":                 Number,
	"text":                     LongText,
	"timestamp with time zone": DateTime,
}

// Classify maps a column to its input kind. It never fails: unknown types
// are ShortText. Booleans are never required, an unchecked box is a valid
// false.
func Classify(col *catalog.Column) Classification {
	kind, ok := kinds[col.DataType]
	if !ok {
		kind = ShortText
	}
	return Classification{
		Kind:     kind,
		Required: col.Required() && kind != Boolean,
	}
}
