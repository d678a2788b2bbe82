/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

type SQLError int

const (
	UnknownErr SQLError = iota
	NoRowsErr
	NoIndexErr
	NoColumnErr
	ExistIndexErr
	ExistColumnErr
	NoTableErr
	ExistTableErr
	DuplicateKeyErr
	NotNullViolationErr
	ForeignKeyViolationErr
	CheckConstraintViolationErr
	DataTruncatedErr
	InvalidTypeCastErr
)

var sqlErrorNames = map[SQLError]string{
	UnknownErr:                  "unknown",
	NoRowsErr:                   "no rows",
	NoIndexErr:                  "no index",
	NoColumnErr:                 "no column",
	ExistIndexErr:               "index exists",
	ExistColumnErr:              "column exists",
	NoTableErr:                  "no table",
	ExistTableErr:               "table exists",
	DuplicateKeyErr:             "duplicate key",
	NotNullViolationErr:         "not null violation",
	ForeignKeyViolationErr:      "foreign key violation",
	CheckConstraintViolationErr: "check constraint violation",
	DataTruncatedErr:            "data truncated",
	InvalidTypeCastErr:          "invalid type cast",
}

func (e SQLError) String() string {
	if name, ok := sqlErrorNames[e]; ok {
		return name
	}
	return sqlErrorNames[UnknownErr]
}

var mysqlErrorCodes = map[uint16]SQLError{
	1091: NoIndexErr,
	1054: NoColumnErr,
	1061: ExistIndexErr,
	1060: ExistColumnErr,
	1146: NoTableErr,
	1050: ExistTableErr,
	1062: DuplicateKeyErr,
	1048: NotNullViolationErr,
	1216: ForeignKeyViolationErr,
	1217: ForeignKeyViolationErr,
	1451: ForeignKeyViolationErr,
	1452: ForeignKeyViolationErr,
	3819: CheckConstraintViolationErr,
	1265: DataTruncatedErr,
	1406: DataTruncatedErr,
}

// messagePatterns match PostgreSQL (lib/pq and SQLSTATE codes) and SQLite
// messages. A pattern matches when the message contains all of its needles.
var messagePatterns = []struct {
	kind    SQLError
	needles [][]string
}{
	{NoColumnErr, [][]string{{"sqlstate 42703"}, {"pq: column", "does not exist"}, {"undefined column"}, {"no such column"}}},
	{NoIndexErr, [][]string{{"sqlstate 42704"}, {"no such index"}, {"index", "does not exist"}}},
	{NoTableErr, [][]string{{"sqlstate 42p01"}, {"undefined table"}, {"no such table"}, {"relation", "does not exist"}}},
	{ExistIndexErr, [][]string{{"index", "already exists"}}},
	{ExistColumnErr, [][]string{{"sqlstate 42701"}, {"duplicate column"}}},
	{ExistTableErr, [][]string{{"sqlstate 42p07"}, {"table", "already exists"}, {"relation", "already exists"}}},
	{DuplicateKeyErr, [][]string{{"sqlstate 23505"}, {"duplicate key value"}, {"unique constraint failed"}}},
	{NotNullViolationErr, [][]string{{"sqlstate 23502"}, {"not-null constraint"}, {"not null constraint failed"}}},
	{ForeignKeyViolationErr, [][]string{{"sqlstate 23503"}, {"foreign key violation"}, {"violates foreign key constraint"}, {"foreign key constraint failed"}}},
	{CheckConstraintViolationErr, [][]string{{"sqlstate 23514"}, {"check constraint"}}},
	{DataTruncatedErr, [][]string{{"sqlstate 22001"}, {"string data right truncation"}, {"data truncated"}, {"value too long"}}},
	{InvalidTypeCastErr, [][]string{{"sqlstate 42804"}, {"datatype mismatch"}, {"invalid input syntax"}}},
}

// IsSqlError classifies err as a database error. MySQL errors are recognized
// by number, everything else by message.
func IsSqlError(err error) (is bool, sqlErr SQLError) {
	if err == nil {
		return false, UnknownErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		return true, NoRowsErr
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		if kind, ok := mysqlErrorCodes[mysqlErr.Number]; ok {
			return true, kind
		}
		return true, UnknownErr
	}

	msg := strings.ToLower(err.Error())
	for _, p := range messagePatterns {
		for _, needles := range p.needles {
			if containsAll(msg, needles) {
				return true, p.kind
			}
		}
	}
	return false, UnknownErr
}

// IsDuplicateKey reports whether err is a unique constraint violation.
func IsDuplicateKey(err error) bool {
	is, kind := IsSqlError(err)
	return is && kind == DuplicateKeyErr
}

func containsAll(s string, needles []string) bool {
	for _, n := range needles {
		if !strings.Contains(s, n) {
			return false
		}
	}
	return true
}
