package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// dbFailure is the subset of a postgres error worth attaching to a request log.
type dbFailure struct {
	code, constraint, table, column, detail string
}

func databaseFailure(err error) (dbFailure, bool) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return dbFailure{pgxErr.Code, pgxErr.ConstraintName, pgxErr.TableName, pgxErr.ColumnName, pgxErr.Detail}, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return dbFailure{string(pqErr.Code), pqErr.Constraint, pqErr.Table, pqErr.Column, pqErr.Detail}, true
	}
	return dbFailure{}, false
}

// LogFields flattens err into structured log fields: the typed code, every wrapped layer,
// the failing settlement or ledger step when one was recorded, and postgres diagnostics.
// Empty values are left out so sqlite and non-database failures stay compact.
func LogFields(err error) map[string]any {
	if err == nil {
		return nil
	}
	fields := map[string]any{"error": err.Error()}

	if typed := As(err); typed != nil {
		fields["error_code"] = typed.Code()
		if details, ok := typed.Details().(map[string]any); ok {
			if step, ok := details["step"]; ok {
				fields["step"] = step
			}
		}
	}

	var chain []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		chain = append(chain, fmt.Sprintf("%T", e))
	}
	if len(chain) > 1 {
		fields["error_chain"] = chain
	}

	if failure, ok := databaseFailure(err); ok {
		for key, value := range map[string]string{
			"pg_code":       failure.code,
			"pg_constraint": failure.constraint,
			"pg_table":      failure.table,
			"pg_column":     failure.column,
			"pg_detail":     failure.detail,
		} {
			if value != "" {
				fields[key] = value
			}
		}
	}
	return fields
}
