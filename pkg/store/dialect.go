package store

import "strings"

// Dialect names the SQL flavour spoken by a driver
type Dialect string

const (
	DialectSQLite Dialect = "sqlite"
	DialectMySQL  Dialect = "mysql"
)

// ColumnKind is the storage class inferred for a CSV column
type ColumnKind int

const (
	KindInteger ColumnKind = iota
	KindReal
	KindText
)

func (k ColumnKind) String() string {
	switch k {
	case KindInteger:
		return "INTEGER"
	case KindReal:
		return "REAL"
	default:
		return "TEXT"
	}
}

// Quote quotes an identifier
func (d Dialect) Quote(ident string) string {
	if d == DialectMySQL {
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// ColumnType returns the column type used for kind
func (d Dialect) ColumnType(kind ColumnKind) string {
	if d == DialectMySQL {
		switch kind {
		case KindInteger:
			return "BIGINT"
		case KindReal:
			return "DOUBLE"
		default:
			return "VARCHAR(255)"
		}
	}
	return kind.String()
}
