package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// economyConstraints names the schema checks that back ledger invariants.
// Tripping one means a service let an illegal state reach the database.
var economyConstraints = map[string]string{
	"chk_accounts_balance_non_negative":   "account balance below zero",
	"chk_account_cards_quantity_positive": "inventory quantity below one",
	"chk_package_definitions_price":       "package price below zero",
	"chk_package_definitions_size":        "package size below one",
	"chk_package_definitions_guarantees":  "package guarantees exceed size",
	"chk_trades_credits_non_negative":     "trade credits below zero",
	"chk_trades_not_empty":                "trade carries no cards",
	"chk_trades_acceptor_on_accept":       "accepted trade without acceptor",
}

// Postgres SQLSTATEs that a retried unit of work can clear.
var transientSQLStates = map[string]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"55P03": {}, // lock_not_available
}

// ErrorDump flattens an error chain for structured logs.
type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGColumn     string `json:"pg_column,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`

	// Invariant is set when PGConstraint is one of the economy checks.
	Invariant string `json:"invariant,omitempty"`
	Transient bool   `json:"transient,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{
		TopMessage: err.Error(),
	}

	if te := As(err); te != nil {
		d.Code = te.Code()
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgxErr):
		d.PGCode = pgxErr.Code
		d.PGConstraint = pgxErr.ConstraintName
		d.PGTable = pgxErr.TableName
		d.PGColumn = pgxErr.ColumnName
		d.PGDetail = pgxErr.Detail
		d.PGMessage = pgxErr.Message
	case errors.As(err, &pqErr):
		d.PGCode = string(pqErr.Code)
		d.PGConstraint = pqErr.Constraint
		d.PGTable = pqErr.Table
		d.PGColumn = pqErr.Column
		d.PGDetail = pqErr.Detail
		d.PGMessage = pqErr.Message
	default:
		return d
	}

	d.Invariant = economyConstraints[d.PGConstraint]
	_, d.Transient = transientSQLStates[d.PGCode]
	return d
}
