package records

import (
	"context"
	"errors"
	"time"

	"github.com/koustreak/mngr/internal/catalog"
	"github.com/koustreak/mngr/internal/database"
	"github.com/koustreak/mngr/internal/errs"
	"github.com/koustreak/mngr/internal/form"
	"github.com/koustreak/mngr/internal/logger"
	"github.com/koustreak/mngr/internal/statement"
)

// Catalogs hands out the current catalog snapshot. *catalog.Store
// implements it.
type Catalogs interface {
	Current() (*catalog.Catalog, error)
}

// Options configures a Service. Zero values mean the defaults.
type Options struct {
	PageSize     int
	QueryTimeout time.Duration
	Logger       *logger.Logger
}

// Service runs record operations against whatever catalog snapshot is
// current when each call starts.
type Service struct {
	db       database.DB
	catalogs Catalogs
	pageSize int
	timeout  time.Duration
	log      *logger.Logger
}

// NewService creates a Service.
func NewService(db database.DB, catalogs Catalogs, opts Options) *Service {
	if opts.PageSize <= 0 {
		opts.PageSize = statement.DefaultLimit
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &Service{
		db:       db,
		catalogs: catalogs,
		pageSize: opts.PageSize,
		timeout:  opts.QueryTimeout,
		log:      opts.Logger,
	}
}

// SubmitError is a rejected write. Form carries the attempted values so the
// submission can be shown again unchanged.
type SubmitError struct {
	Form *form.Form
	Err  error
}

func (e *SubmitError) Error() string { return e.Err.Error() }
func (e *SubmitError) Unwrap() error { return e.Err }

// ListParams are the raw list request parameters.
type ListParams struct {
	SortColumn    string
	SortDirection string
	Page          int
}

// Page is one sorted page of rows.
type Page struct {
	Table     *catalog.Table `json:"-"`
	Columns   []string       `json:"columns"`
	Rows      [][]Cell       `json:"rows"`
	Sort      string         `json:"sort_column"`
	Direction string         `json:"sort_direction"`
	Number    int            `json:"page"`
	Limit     int            `json:"limit"`
	HasNext   bool           `json:"has_next"`
}

// Record is a single row.
type Record struct {
	Table *catalog.Table `json:"-"`
	Key   string         `json:"key"`
	Cells []Cell         `json:"cells"`
}

// TableView is the full metadata of one table, for inspection.
type TableView struct {
	Table       *catalog.Table      `json:"table"`
	Constraints catalog.Partitioned `json:"constraints"`
	Form        *form.Form          `json:"form"`
	KeyColumn   string              `json:"key_column,omitempty"`
	KeyError    string              `json:"key_error,omitempty"`
}

// Schemas lists the visible schemas of the current snapshot.
func (s *Service) Schemas() ([]*catalog.Schema, error) {
	c, err := s.catalogs.Current()
	if err != nil {
		return nil, err
	}
	return c.Schemas(), nil
}

// Table resolves a table by oid in the current snapshot.
func (s *Service) Table(oid uint32) (*catalog.Table, error) {
	c, err := s.catalogs.Current()
	if err != nil {
		return nil, err
	}
	return c.TableByOID(oid)
}

// Describe returns the table's metadata with its partitioned constraints
// and the form built from it.
func (s *Service) Describe(oid uint32) (*TableView, error) {
	t, err := s.Table(oid)
	if err != nil {
		return nil, err
	}
	part := catalog.Partition(t.ConstraintSets)
	v := &TableView{Table: t, Constraints: part, Form: form.New(t, part)}
	if key, err := statement.KeyColumn(t); err != nil {
		v.KeyError = err.Error()
	} else {
		v.KeyColumn = key.Name
	}
	return v, nil
}

// List reads one page of the table.
func (s *Service) List(ctx context.Context, oid uint32, p ListParams) (*Page, error) {
	t, err := s.Table(oid)
	if err != nil {
		return nil, err
	}
	dir, err := statement.ParseDirection(p.SortDirection)
	if err != nil {
		return nil, err
	}
	sortCol, err := statement.ResolveSort(t, p.SortColumn)
	if err != nil {
		return nil, err
	}
	page := max(p.Page, 1)

	st, err := statement.Select(t, statement.ListOptions{
		SortColumn: sortCol.Name,
		Direction:  dir,
		Limit:      s.pageSize,
		Page:       page,
	})
	if err != nil {
		return nil, err
	}

	rows, err := s.query(ctx, st)
	if err != nil {
		return nil, err
	}

	out := &Page{
		Table:     t,
		Columns:   columnNames(t),
		Rows:      make([][]Cell, len(rows)),
		Sort:      sortCol.Name,
		Direction: dir.String(),
		Number:    page,
		Limit:     s.pageSize,
		HasNext:   len(rows) == s.pageSize,
	}
	for i, r := range rows {
		out.Rows[i] = Project(t.Columns, MapRow(r))
	}
	return out, nil
}

// Get reads the row identified by key.
func (s *Service) Get(ctx context.Context, oid uint32, key string) (*Record, error) {
	t, err := s.Table(oid)
	if err != nil {
		return nil, err
	}
	return s.get(ctx, t, key)
}

func (s *Service) get(ctx context.Context, t *catalog.Table, key string) (*Record, error) {
	st, err := statement.SelectByKey(t, key)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.Query(ctx, st.SQL, st.Args...)
	if err != nil {
		return nil, err
	}
	row, err := database.ScanOne(rows)
	if err != nil {
		if errs.IsNotFound(err) {
			return nil, errs.Newf(errs.ErrKindNotFound, "no row of %s with key %q", t.QualifiedName(), key)
		}
		return nil, err
	}
	return &Record{Table: t, Key: key, Cells: Project(t.Columns, MapRow(row))}, nil
}

// NewForm returns the empty input form of the table.
func (s *Service) NewForm(oid uint32) (*form.Form, error) {
	t, err := s.Table(oid)
	if err != nil {
		return nil, err
	}
	return formFor(t), nil
}

// EditForm returns the table's form filled with the current values of the
// row identified by key.
func (s *Service) EditForm(ctx context.Context, oid uint32, key string) (*form.Form, error) {
	t, err := s.Table(oid)
	if err != nil {
		return nil, err
	}
	rec, err := s.get(ctx, t, key)
	if err != nil {
		return nil, err
	}
	f := formFor(t).WithValues(Values(rec.Cells))
	for _, c := range rec.Cells {
		if field, ok := f.Field(c.Column); ok && c.Null {
			field.Null = true
		}
	}
	return f, nil
}

// Create inserts one row. Invalid values and rows the database rejects
// come back as *SubmitError.
func (s *Service) Create(ctx context.Context, oid uint32, values map[string]string) error {
	t, err := s.Table(oid)
	if err != nil {
		return err
	}
	if err := form.Validate(t, values, form.ModeInsert); err != nil {
		return s.rejected(t, values, err)
	}

	st, err := statement.Insert(t, values)
	if err != nil {
		return s.rejected(t, values, err)
	}

	if _, err := s.exec(ctx, st); err != nil {
		return s.rejected(t, values, err)
	}

	s.log.InfoWith("record created", map[string]interface{}{"table": t.QualifiedName()})
	return nil
}

// Update changes the row identified by key. Invalid values and rows the
// database rejects come back as *SubmitError.
func (s *Service) Update(ctx context.Context, oid uint32, key string, values map[string]string) error {
	t, err := s.Table(oid)
	if err != nil {
		return err
	}
	if err := form.Validate(t, values, form.ModeUpdate); err != nil {
		return s.rejected(t, values, err)
	}

	st, err := statement.Update(t, key, values)
	if err != nil {
		return s.rejected(t, values, err)
	}

	n, err := s.exec(ctx, st)
	if err != nil {
		return s.rejected(t, values, err)
	}
	if n == 0 {
		return errs.Newf(errs.ErrKindNotFound, "no row of %s with key %q", t.QualifiedName(), key)
	}

	s.log.InfoWith("record updated", map[string]interface{}{"table": t.QualifiedName(), "key": key})
	return nil
}

// rejected wraps errors caused by the submitted values in a SubmitError.
// Anything else is returned as is.
func (s *Service) rejected(t *catalog.Table, values map[string]string, err error) error {
	switch errs.KindOf(err) {
	case errs.ErrKindInvalidInput, errs.ErrKindDataIntegrity:
		s.log.WarnWith("submission rejected", err, map[string]interface{}{"table": t.QualifiedName()})
		return &SubmitError{Form: formFor(t).WithValues(values), Err: err}
	}
	return err
}

func (s *Service) query(ctx context.Context, st statement.Statement) ([]map[string]any, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	s.log.Debugf("query: %s", st.SQL)
	rows, err := s.db.Query(ctx, st.SQL, st.Args...)
	if err != nil {
		return nil, err
	}
	return database.ScanRows(rows)
}

func (s *Service) exec(ctx context.Context, st statement.Statement) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	s.log.Debugf("exec: %s", st.SQL)
	return s.db.Exec(ctx, st.SQL, st.Args...)
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func formFor(t *catalog.Table) *form.Form {
	return form.New(t, catalog.Partition(t.ConstraintSets))
}

func columnNames(t *catalog.Table) []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// AsSubmitError extracts a SubmitError from err.
func AsSubmitError(err error) (*SubmitError, bool) {
	var se *SubmitError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
