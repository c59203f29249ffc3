package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/koustreak/mngr/internal/catalog"
	"github.com/koustreak/mngr/internal/errs"
	"github.com/koustreak/mngr/internal/statement"
)

// SQLCmd prints the statement and arguments a record operation would send,
// without running it.
type SQLCmd struct {
	Table     string            `help:"Table, as schema.table or a bare name" short:"t" required:""`
	Op        string            `help:"Operation" enum:"select,get,insert,update" default:"select"`
	Key       string            `help:"Key value of the row (get, update)" short:"k"`
	Set       map[string]string `help:"Column values (insert, update)" short:"s"`
	Sort      string            `help:"Sort column (select)"`
	Direction string            `help:"Sort direction, asc or desc (select)" default:"asc"`
	Page      int               `help:"Page number (select)" default:"1"`
	Limit     int               `help:"Rows per page (select), defaults to server.page_size"`
}

func (s *SQLCmd) Run(ctx *Context) error {
	e, err := ctx.open(context.Background(), os.Stderr)
	if err != nil {
		return err
	}
	defer e.Close()

	c, err := e.store.Current()
	if err != nil {
		return err
	}
	t, err := c.Table(s.Table)
	if err != nil {
		return err
	}

	limit := s.Limit
	if limit <= 0 {
		limit = e.cfg.Server.PageSize
	}
	st, err := s.statement(t, limit)
	if err != nil {
		return err
	}

	fmt.Println(st.SQL)
	for i, arg := range st.Args {
		fmt.Printf("%s %v\n", color.CyanString("$%d", i+1), arg)
	}
	return nil
}

func (s *SQLCmd) statement(t *catalog.Table, limit int) (statement.Statement, error) {
	switch s.Op {
	case "get":
		if s.Key == "" {
			return statement.Statement{}, errs.New(errs.ErrKindInvalidInput, "--key is required for get")
		}
		return statement.SelectByKey(t, s.Key)
	case "insert":
		return statement.Insert(t, s.Set)
	case "update":
		if s.Key == "" {
			return statement.Statement{}, errs.New(errs.ErrKindInvalidInput, "--key is required for update")
		}
		return statement.Update(t, s.Key, s.Set)
	}

	dir, err := statement.ParseDirection(strings.TrimSpace(s.Direction))
	if err != nil {
		return statement.Statement{}, err
	}
	col, err := statement.ResolveSort(t, s.Sort)
	if err != nil {
		return statement.Statement{}, err
	}
	return statement.Select(t, statement.ListOptions{
		SortColumn: col.Name,
		Direction:  dir,
		Limit:      limit,
		Page:       max(s.Page, 1),
	})
}
