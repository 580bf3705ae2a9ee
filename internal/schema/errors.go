package schema

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

type TableNotFoundError struct {
	Name        string
	Suggestions []string
}

func (e *TableNotFoundError) Error() string {
	msg := fmt.Sprintf("table %q not found", e.Name)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean: %s?)", strings.Join(e.Suggestions, ", "))
	}
	return msg
}

// ColumnNotFoundError is returned when no table of the schema has the column.
type ColumnNotFoundError struct {
	Name        string
	Suggestions []string
}

func (e *ColumnNotFoundError) Error() string {
	msg := fmt.Sprintf("column %q not found in any table", e.Name)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean: %s?)", strings.Join(e.Suggestions, ", "))
	}
	return msg
}

// IsNotFound reports whether err is a table or column lookup failure.
func IsNotFound(err error) bool {
	var tErr *TableNotFoundError
	var cErr *ColumnNotFoundError
	return errors.As(err, &tErr) || errors.As(err, &cErr)
}
