package database

import "github.com/koustreak/mngr/internal/errs"

// ScanRows reads all rows from the result set and returns them as a slice
// of maps, where each key is the column name and each value is the Go-native
// representation of the DB value.
//
// The returned slice is always non-nil (empty slice on zero rows).
// ScanRows always closes the Rows; callers do not need to call Close().
func ScanRows(rows Rows) ([]map[string]any, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "failed to read column names", err)
	}

	result := make([]map[string]any, 0)

	for rows.Next() {
		row, err := scanInto(rows, columns)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, passThrough(err, "error during row iteration")
	}

	return result, nil
}

// ScanOne reads exactly one row from the result set.
// Returns ErrKindNotFound if the result set is empty.
func ScanOne(rows Rows) (map[string]any, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "failed to read column names", err)
	}

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, passThrough(err, "error during row iteration")
		}
		return nil, errs.New(errs.ErrKindNotFound, "record not found")
	}

	return scanInto(rows, columns)
}

func scanInto(rows Rows, columns []string) (map[string]any, error) {
	// Allocate scan targets as *any so the driver can write any type.
	dest := make([]any, len(columns))
	destPtrs := make([]any, len(columns))
	for i := range dest {
		destPtrs[i] = &dest[i]
	}

	if err := rows.Scan(destPtrs...); err != nil {
		return nil, passThrough(err, "failed to scan row")
	}

	row := make(map[string]any, len(columns))
	for i, col := range columns {
		row[col] = dest[i]
	}
	return row, nil
}

// passThrough keeps driver-classified errors intact and wraps anything else.
func passThrough(err error, msg string) error {
	if errs.KindOf(err) != errs.ErrKindUnknown {
		return err
	}
	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}
