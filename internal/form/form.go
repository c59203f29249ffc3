package form

import (
	"bytes"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/koustreak/mngr/internal/catalog"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Attrs are optional input attributes. Nil means unset.
type Attrs struct {
	Min       *int64 `json:"min,omitempty"`
	Max       *int64 `json:"max,omitempty"`
	Step      *int64 `json:"step,omitempty"`
	MaxLength *int64 `json:"maxlength,omitempty"`
}

// Field is one input, built from one column.
type Field struct {
	Name            string                `json:"name"`
	Label           string                `json:"label"`
	Kind            InputKind             `json:"kind"`
	Type            string                `json:"type"`
	DataType        string                `json:"data_type"`
	Required        bool                  `json:"required"`
	Description     string                `json:"description,omitempty"`
	DescriptionHTML string                `json:"description_html,omitempty"`
	Attrs           Attrs                 `json:"attrs"`
	Constraints     []*catalog.Constraint `json:"constraints,omitempty"`
	Value           string                `json:"value,omitempty"`
	// Null marks a value read as SQL NULL. Submitting the field empty keeps
	// it NULL when the column is nullable.
	Null bool `json:"null,omitempty"`
}

// TableConstraint annotates the whole row: constraints spanning several
// columns.
type TableConstraint struct {
	Columns     []string              `json:"columns"`
	Constraints []*catalog.Constraint `json:"constraints"`
}

// Form is the input surface of a table.
type Form struct {
	Table            string            `json:"table"`
	Description      string            `json:"description,omitempty"`
	DescriptionHTML  string            `json:"description_html,omitempty"`
	Fields           []Field           `json:"fields"`
	TableConstraints []TableConstraint `json:"table_constraints,omitempty"`
	Values           map[string]string `json:"values,omitempty"`
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// integer ranges of the Number types
var numberRange = map[string][2]int64{
	"smallint": {-32768, 32767},
	"integer":  {-2147483648, 2147483647},
}

var varcharLength = regexp.MustCompile(`^character varying\((\d+)\)$`)

// New builds the form of table: one field per column the database accepts
// a value for, in ordinal order, annotated with the partitioned
// constraints.
func New(table *catalog.Table, part catalog.Partitioned) *Form {
	title := cases.Title(language.English)

	f := &Form{Table: table.QualifiedName()}
	if table.Description != nil {
		f.Description = *table.Description
		f.DescriptionHTML = renderMarkdown(*table.Description)
	}

	for _, col := range table.Columns {
		if col.AlwaysGenerated() {
			continue
		}
		c := Classify(col)
		field := Field{
			Name:        col.Name,
			Label:       title.String(strings.ReplaceAll(col.Name, "_", " ")),
			Kind:        c.Kind,
			Type:        c.Kind.HTMLType(),
			DataType:    col.DataType,
			Required:    c.Required,
			Attrs:       attrsFor(col, c.Kind),
			Constraints: part.ByColumn[col.Position],
		}
		if col.Description != nil {
			field.Description = *col.Description
			field.DescriptionHTML = renderMarkdown(*col.Description)
		}
		f.Fields = append(f.Fields, field)
	}

	for _, key := range slices.Sorted(maps.Keys(part.ByColumns)) {
		tc := TableConstraint{Constraints: part.ByColumns[key]}
		for _, pos := range part.Keys[key] {
			if col, ok := table.ColumnAt(pos); ok {
				tc.Columns = append(tc.Columns, col.Name)
			}
		}
		f.TableConstraints = append(f.TableConstraints, tc)
	}

	return f
}

// WithValues returns a copy of the form carrying the attempted values, so
// a rejected submission can be shown again as it was entered.
func (f *Form) WithValues(values map[string]string) *Form {
	out := *f
	out.Values = maps.Clone(values)
	out.Fields = make([]Field, len(f.Fields))
	for i, field := range f.Fields {
		field.Value = values[field.Name]
		out.Fields[i] = field
	}
	return &out
}

// Field finds a field by column name.
func (f *Form) Field(name string) (*Field, bool) {
	for i := range f.Fields {
		if f.Fields[i].Name == name {
			return &f.Fields[i], true
		}
	}
	return nil, false
}

func attrsFor(col *catalog.Column, kind InputKind) Attrs {
	var a Attrs
	switch kind {
	case Number:
		step := int64(1)
		a.Step = &step
		if r, ok := numberRange[col.DataType]; ok {
			lo, hi := r[0], r[1]
			a.Min, a.Max = &lo, &hi
		}
	case ShortText:
		if m := varcharLength.FindStringSubmatch(col.DataType); m != nil {
			if n, err := strconv.ParseInt(m[1], 10, 64); err == nil {
				a.MaxLength = &n
			}
		}
	}
	// Date and DateTime bounds stay unset until constraints can supply them.
	return a
}

// renderMarkdown renders a catalog comment. Raw HTML in the comment is
// not passed through.
func renderMarkdown(src string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return ""
	}
	return buf.String()
}
