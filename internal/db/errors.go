package db

import (
	"errors"
	"regexp"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

// MySQL error numbers and Postgres SQLSTATE codes for absent schema objects.
const (
	mysqlNoSuchTable  = 1146
	mysqlBadField     = 1054
	pgUndefinedTable  = "42P01"
	pgUndefinedColumn = "42703"
)

// Drivers without typed errors (sqlite, PostgREST-style gateways) only give
// us text.
var missingRelationText = regexp.MustCompile(`(?i)no such (table|column)|relation .* does not exist|column .* does not exist|schema cache`)

// IsMissingRelation reports whether err means a table or column is absent
// from the schema. Loaders treat that as an empty result.
func IsMissingRelation(err error) bool {
	if err == nil {
		return false
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlNoSuchTable || myErr.Number == mysqlBadField
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUndefinedTable || pgErr.Code == pgUndefinedColumn
	}
	return missingRelationText.MatchString(err.Error())
}
