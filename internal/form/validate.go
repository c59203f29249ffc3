package form

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/koustreak/mngr/internal/catalog"
	"github.com/koustreak/mngr/internal/errs"
	"github.com/shopspring/decimal"
)

// Mode is the write a set of values is validated for.
type Mode int

const (
	// ModeInsert skips empty values; the insert leaves those columns out.
	ModeInsert Mode = iota
	// ModeUpdate binds every value as given, except that an empty value for
	// a nullable column becomes NULL. Other empty values are checked like any
	// other value.
	ModeUpdate
)

// FieldErrors maps a column name to what is wrong with its value.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	names := make([]string, 0, len(fe))
	for name := range fe {
		names = append(names, name)
	}
	slices.Sort(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ": " + fe[name]
	}
	return strings.Join(parts, "; ")
}

var booleans = map[string]bool{
	"true": true, "false": true, "t": true, "f": true,
	"on": true, "off": true, "1": true, "0": true,
	"yes": true, "no": true,
}

var decimalTypes = []string{"numeric", "decimal", "real", "double precision"}

// dateTimeLayouts covers datetime-local input, RFC 3339 and PostgreSQL's
// own text output ("2024-01-02 10:00:00+00", "... 10:00:00.5+05:30").
// Fractional seconds are accepted after any seconds field.
var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05Z07",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

// Validate checks values against the columns of table before a statement
// is built. Values for always-generated columns are ignored, as the
// statements drop them. It returns an ErrKindInvalidInput error wrapping
// FieldErrors when any value is unusable.
func Validate(table *catalog.Table, values map[string]string, mode Mode) error {
	problems := FieldErrors{}

	for name, value := range values {
		col, ok := table.Column(name)
		if !ok {
			problems[name] = "no such column"
			continue
		}
		if col.AlwaysGenerated() || value == "" && (mode == ModeInsert || col.Nullable) {
			continue
		}
		if msg := checkValue(col, value); msg != "" {
			problems[name] = msg
		}
	}

	if len(problems) > 0 {
		return errs.Wrap(errs.ErrKindInvalidInput,
			fmt.Sprintf("invalid values for %s", table.QualifiedName()), problems)
	}
	return nil
}

// checkValue returns why value cannot be cast to the column's type, or "".
func checkValue(col *catalog.Column, value string) string {
	switch Classify(col).Kind {
	case Number:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return "must be a whole number"
		}
		if r, ok := numberRange[col.DataType]; ok && (n < r[0] || n > r[1]) {
			return fmt.Sprintf("must be between %d and %d", r[0], r[1])
		}
	case Boolean:
		if !booleans[strings.ToLower(value)] {
			return "must be true or false"
		}
	case Date:
		if _, err := time.Parse(time.DateOnly, value); err != nil {
			return "must be a date (YYYY-MM-DD)"
		}
	case DateTime:
		if !parsesAsDateTime(value) {
			return "must be a date and time (YYYY-MM-DDTHH:MM)"
		}
	default:
		if isDecimalType(col.DataType) {
			if _, err := decimal.NewFromString(value); err != nil {
				return "must be a number"
			}
		}
	}
	return ""
}

func parsesAsDateTime(value string) bool {
	for _, layout := range dateTimeLayouts {
		if _, err := time.Parse(layout, value); err == nil {
			return true
		}
	}
	return false
}

// isDecimalType matches the type name with or without precision, e.g.
// "numeric(10,2)".
func isDecimalType(dataType string) bool {
	base, _, _ := strings.Cut(dataType, "(")
	return slices.Contains(decimalTypes, strings.TrimSpace(base))
}
