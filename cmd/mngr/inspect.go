package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/koustreak/mngr/internal/catalog"
	"github.com/koustreak/mngr/internal/form"
	"github.com/koustreak/mngr/internal/statement"
)

// InspectCmd prints the loaded catalog as a tree.
type InspectCmd struct {
	Table string `help:"Only this table, as schema.table or a bare name" short:"t"`
}

func (i *InspectCmd) Run(ctx *Context) error {
	e, err := ctx.open(context.Background(), os.Stderr)
	if err != nil {
		return err
	}
	defer e.Close()

	c, err := e.store.Current()
	if err != nil {
		return err
	}

	if i.Table != "" {
		t, err := c.Table(i.Table)
		if err != nil {
			return err
		}
		printTable(os.Stdout, c, t)
		return nil
	}

	for _, s := range c.Schemas() {
		color.New(color.FgBlue, color.Bold).Fprintf(os.Stdout, "%s\n", s.Name)
		for _, t := range s.Tables {
			printTable(os.Stdout, c, t)
		}
	}
	amb := c.Ambiguous()
	for _, name := range slices.Sorted(maps.Keys(amb)) {
		color.New(color.FgYellow).Fprintf(os.Stdout, "ambiguous name %s: %s\n", name, strings.Join(amb[name], ", "))
	}
	return nil
}

func printTable(w io.Writer, c *catalog.Catalog, t *catalog.Table) {
	bold := color.New(color.Bold)
	dim := color.New(color.Faint)

	bold.Fprintf(w, "  %s", t.QualifiedName())
	dim.Fprintf(w, " (oid %d)", t.OID)
	if key, err := statement.KeyColumn(t); err == nil {
		dim.Fprintf(w, " key %s", key.Name)
	} else {
		color.New(color.FgRed).Fprintf(w, " %v", err)
	}
	fmt.Fprintln(w)
	if t.Description != nil {
		dim.Fprintf(w, "    %s\n", firstLine(*t.Description))
	}

	part := catalog.Partition(t.ConstraintSets)
	for _, col := range t.Columns {
		cls := form.Classify(col)
		fmt.Fprintf(w, "    %-24s %-28s %s", col.Name, col.DataType, color.CyanString(cls.Kind.String()))
		var flags []string
		if cls.Required {
			flags = append(flags, "required")
		}
		if col.Nullable {
			flags = append(flags, "nullable")
		}
		if col.Identity != catalog.IdentityNone {
			flags = append(flags, col.Identity.String())
		}
		if col.Generated != catalog.GeneratedNone {
			flags = append(flags, "generated "+col.Generated.String())
		}
		if col.Expression != nil && col.Generated == catalog.GeneratedNone {
			flags = append(flags, "default "+*col.Expression)
		}
		for _, con := range part.ByColumn[col.Position] {
			flags = append(flags, constraintLabel(c, con))
		}
		if len(flags) > 0 {
			dim.Fprintf(w, "  %s", strings.Join(flags, ", "))
		}
		fmt.Fprintln(w)
	}

	for _, key := range slices.Sorted(maps.Keys(part.ByColumns)) {
		positions := part.Keys[key]
		names := make([]string, len(positions))
		for i, pos := range positions {
			if col, ok := t.ColumnAt(pos); ok {
				names[i] = col.Name
			}
		}
		for _, con := range part.ByColumns[key] {
			fmt.Fprintf(w, "    (%s) %s\n", strings.Join(names, ", "), constraintLabel(c, con))
		}
	}
}

func constraintLabel(c *catalog.Catalog, con *catalog.Constraint) string {
	label := con.Kind.String() + " " + con.Name
	if ref := con.ForeignRef; ref != nil {
		target := fmt.Sprintf("oid %d", ref.TableOID)
		if t, err := c.TableByOID(ref.TableOID); err == nil {
			target = t.QualifiedName()
		}
		label += " -> " + target
		if ref.MatchType != catalog.MatchSimple {
			label += " match " + ref.MatchType.String()
		}
	}
	if con.Expression != nil {
		label += " " + *con.Expression
	}
	return label
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
