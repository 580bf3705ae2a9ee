package database

import (
	"context"
	"database/sql/driver"
	"io"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsConnectionError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"bad conn", driver.ErrBadConn, true},
		{"wrapped eof", errors.Wrap(io.EOF, "read"), true},
		{"unexpected eof", io.ErrUnexpectedEOF, true},
		{"mysql invalid conn", mysql.ErrInvalidConn, true},
		{"pg admin shutdown", &pq.Error{Code: "57P01"}, true},
		{"pg connection failure", &pq.Error{Code: "08006"}, true},
		{"pg permission denied", &pq.Error{Code: "42501"}, false},
		{"query timeout", errors.Wrap(context.DeadlineExceeded, "count"), false},
		{"typed", &ConnectionError{Driver: "postgres", Err: errors.New("refused")}, true},
		{"plain", errors.New("syntax error"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsConnectionError(tc.err))
		})
	}
}
