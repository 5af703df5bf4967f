package storage

import (
	"fmt"
	"strings"
)

// BookFilter narrows a book listing. The zero value selects every book;
// a non-empty Category restricts the result to exact matches on that name.
type BookFilter struct {
	Category string
}

// BorrowFilter narrows a loan listing. Non-empty fields are combined with AND.
type BorrowFilter struct {
	UserEmail string
	BookName  string
}

// condition is one optional equality predicate of a filter.
type condition struct {
	column string
	value  string
}

// buildWhere assembles a SQL WHERE clause and its argument list from the given
// equality conditions, skipping conditions whose value is empty. It returns the
// empty string and no arguments when no condition applies.
func buildWhere(conds ...condition) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	for _, cond := range conds {
		if cond.value == "" {
			continue
		}
		args = append(args, cond.value)
		clauses = append(clauses, fmt.Sprintf("%s = $%d", cond.column, len(args)))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (f BookFilter) where() (string, []interface{}) {
	return buildWhere(condition{column: "category", value: f.Category})
}

func (f BorrowFilter) where() (string, []interface{}) {
	return buildWhere(
		condition{column: "user_email", value: f.UserEmail},
		condition{column: "book_name", value: f.BookName},
	)
}
