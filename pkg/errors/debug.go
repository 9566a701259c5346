package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump is the log-only view of an error chain. It never reaches clients.
type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	SQLState   string `json:"sql_state,omitempty"`
	Constraint string `json:"constraint,omitempty"`
	Table      string `json:"table,omitempty"`
	Column     string `json:"column,omitempty"`
	Detail     string `json:"detail,omitempty"`
	DBMessage  string `json:"db_message,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	d.fillDriverFields(err)
	return d
}

// fillDriverFields copies postgres diagnostics from either driver the
// repositories can surface (gorm's pgx driver or lib/pq).
func (d *ErrorDump) fillDriverFields(err error) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		d.SQLState, d.Constraint = pgxErr.Code, pgxErr.ConstraintName
		d.Table, d.Column = pgxErr.TableName, pgxErr.ColumnName
		d.Detail, d.DBMessage = pgxErr.Detail, pgxErr.Message
		return
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		d.SQLState, d.Constraint = string(pqErr.Code), pqErr.Constraint
		d.Table, d.Column = pqErr.Table, pqErr.Column
		d.Detail, d.DBMessage = pqErr.Detail, pqErr.Message
	}
}
