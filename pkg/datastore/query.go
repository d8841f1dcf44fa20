package datastore

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/lib/pq"
)

// Op is a comparison operator supported by filters.
type Op string

const (
	OpEq     Op = "="
	OpNeq    Op = "<>"
	OpGt     Op = ">"
	OpGte    Op = ">="
	OpLt     Op = "<"
	OpLte    Op = "<="
	OpIn     Op = "IN"
	OpILike  Op = "ILIKE"
	OpIsNull Op = "IS NULL"
)

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Filter is a single column predicate. Values always bind as positional arguments.
type Filter struct {
	Column string
	Op     Op
	Value  interface{}
}

// Eq matches column = value.
func Eq(column string, value interface{}) Filter { return Filter{Column: column, Op: OpEq, Value: value} }

// Neq matches column <> value.
func Neq(column string, value interface{}) Filter { return Filter{Column: column, Op: OpNeq, Value: value} }

// Gt matches column > value.
func Gt(column string, value interface{}) Filter { return Filter{Column: column, Op: OpGt, Value: value} }

// Gte matches column >= value.
func Gte(column string, value interface{}) Filter { return Filter{Column: column, Op: OpGte, Value: value} }

// Lt matches column < value.
func Lt(column string, value interface{}) Filter { return Filter{Column: column, Op: OpLt, Value: value} }

// Lte matches column <= value.
func Lte(column string, value interface{}) Filter { return Filter{Column: column, Op: OpLte, Value: value} }

// In matches column against any element of a slice value.
func In(column string, values interface{}) Filter { return Filter{Column: column, Op: OpIn, Value: values} }

// ILike matches column case-insensitively against %term%.
func ILike(column, term string) Filter {
	return Filter{Column: column, Op: OpILike, Value: "%" + term + "%"}
}

// IsNull matches rows where column is NULL.
func IsNull(column string) Filter { return Filter{Column: column, Op: OpIsNull} }

// Order sorts by a column.
type Order struct {
	Column string
	Desc   bool
}

// Query describes a filtered select against one table.
type Query struct {
	Table   string
	Columns []string
	Filters []Filter
	Order   []Order
	Limit   int
	Offset  int
}

// From starts a query on table.
func From(table string, columns ...string) Query {
	return Query{Table: table, Columns: columns}
}

// Where appends filters.
func (q Query) Where(filters ...Filter) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), filters...)
	return q
}

// Range appends an inclusive range on column; nil bounds are skipped.
func (q Query) Range(column string, from, to interface{}) Query {
	if !isNil(from) {
		q = q.Where(Gte(column, from))
	}
	if !isNil(to) {
		q = q.Where(Lte(column, to))
	}
	return q
}

// OrderBy appends an ordering.
func (q Query) OrderBy(column string, desc bool) Query {
	q.Order = append(append([]Order(nil), q.Order...), Order{Column: column, Desc: desc})
	return q
}

// Page applies limit/offset.
func (q Query) Page(limit, offset int) Query {
	q.Limit = limit
	q.Offset = offset
	return q
}

func (q Query) whereClause() (string, []interface{}, error) {
	if len(q.Filters) == 0 {
		return "", nil, nil
	}
	conditions := make([]string, 0, len(q.Filters))
	args := make([]interface{}, 0, len(q.Filters))
	for _, f := range q.Filters {
		if err := checkIdentifier(f.Column); err != nil {
			return "", nil, err
		}
		switch f.Op {
		case OpIsNull:
			conditions = append(conditions, fmt.Sprintf("%s IS NULL", f.Column))
		case OpIn:
			if sliceLen(f.Value) == 0 {
				conditions = append(conditions, "1=0")
				continue
			}
			args = append(args, pq.Array(f.Value))
			conditions = append(conditions, fmt.Sprintf("%s = ANY($%d)", f.Column, len(args)))
		case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte, OpILike:
			args = append(args, f.Value)
			conditions = append(conditions, fmt.Sprintf("%s %s $%d", f.Column, f.Op, len(args)))
		default:
			return "", nil, fmt.Errorf("unsupported operator %q", f.Op)
		}
	}
	return " WHERE " + strings.Join(conditions, " AND "), args, nil
}

// SelectSQL renders the SELECT statement and its arguments.
func (q Query) SelectSQL() (string, []interface{}, error) {
	if err := checkIdentifier(q.Table); err != nil {
		return "", nil, err
	}
	columns := "*"
	if len(q.Columns) > 0 {
		for _, c := range q.Columns {
			if err := checkIdentifier(c); err != nil {
				return "", nil, err
			}
		}
		columns = strings.Join(q.Columns, ", ")
	}
	where, args, err := q.whereClause()
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s%s", columns, q.Table, where)
	if len(q.Order) > 0 {
		parts := make([]string, 0, len(q.Order))
		for _, o := range q.Order {
			if err := checkIdentifier(o.Column); err != nil {
				return "", nil, err
			}
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			parts = append(parts, o.Column+" "+dir)
		}
		b.WriteString(" ORDER BY " + strings.Join(parts, ", "))
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}
	if q.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", q.Offset)
	}
	return b.String(), args, nil
}

// WhereSQL renders only the WHERE clause (with a leading space, or empty) for callers composing
// aggregate statements over the same filters.
func (q Query) WhereSQL() (string, []interface{}, error) {
	return q.whereClause()
}

// CountSQL renders a COUNT(*) over the same filters, ignoring order and paging.
func (q Query) CountSQL() (string, []interface{}, error) {
	if err := checkIdentifier(q.Table); err != nil {
		return "", nil, err
	}
	where, args, err := q.whereClause()
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("SELECT COUNT(*) FROM %s%s", q.Table, where), args, nil
}

func checkIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return nil
}

func sliceLen(v interface{}) int {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return 0
	}
	return rv.Len()
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}
