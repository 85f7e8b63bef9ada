package sqlserver

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/DatLens/internal/errs"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errs.ErrKind
	}{
		{
			name: "deadline exceeded",
			err:  context.DeadlineExceeded,
			want: errs.ErrKindTimeout,
		},
		{
			name: "no rows",
			err:  sql.ErrNoRows,
			want: errs.ErrKindNotFound,
		},
		{
			name: "cannot open database",
			err:  mssql.Error{Number: errCannotOpenDB, Message: "Cannot open database"},
			want: errs.ErrKindConnectionFailed,
		},
		{
			name: "login failed",
			err:  mssql.Error{Number: errLoginFailed, Message: "Login failed for user"},
			want: errs.ErrKindConnectionFailed,
		},
		{
			name: "select denied",
			err:  mssql.Error{Number: errSelectDenied, Message: "The SELECT permission was denied"},
			want: errs.ErrKindPermissionDenied,
		},
		{
			name: "invalid object",
			err:  mssql.Error{Number: errInvalidObject, Message: "Invalid object name"},
			want: errs.ErrKindNotFound,
		},
		{
			name: "syntax error",
			err:  mssql.Error{Number: errSyntax, Message: "Incorrect syntax near"},
			want: errs.ErrKindQueryFailed,
		},
		{
			name: "deadlock victim",
			err:  mssql.Error{Number: errDeadlockVictim, Message: "chosen as the deadlock victim"},
			want: errs.ErrKindQueryFailed,
		},
		{
			name: "unclassified engine error",
			err:  mssql.Error{Number: 50000, Message: "user raised"},
			want: errs.ErrKindQueryFailed,
		},
		{
			name: "non-driver error",
			err:  errors.New("dial tcp: connection refused"),
			want: errs.ErrKindConnectionFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := mapError(tt.err, "op failed")
			require.NotNil(t, mapped)
			assert.Equal(t, tt.want, mapped.Kind)
		})
	}
}

func TestMapError_Nil(t *testing.T) {
	assert.Nil(t, mapError(nil, "op"))
}

func TestErrTableNotFound(t *testing.T) {
	err := errTableNotFound("Sales", "Orders")
	assert.True(t, errs.IsNotFound(err))
	assert.Contains(t, err.Error(), "Sales.Orders")
}

func TestRenderType(t *testing.T) {
	valid := func(n int64) sql.NullInt64 { return sql.NullInt64{Int64: n, Valid: true} }
	invalid := sql.NullInt64{}

	tests := []struct {
		name      string
		dataType  string
		maxLen    sql.NullInt64
		precision sql.NullInt64
		scale     sql.NullInt64
		want      string
	}{
		{"varchar with length", "varchar", valid(50), invalid, invalid, "varchar(50)"},
		{"nvarchar max", "nvarchar", valid(-1), invalid, invalid, "nvarchar(max)"},
		{"varbinary", "varbinary", valid(16), invalid, invalid, "varbinary(16)"},
		{"char without length", "char", invalid, invalid, invalid, "char"},
		{"decimal", "decimal", invalid, valid(19), valid(4), "decimal(19,4)"},
		{"numeric without precision", "numeric", invalid, invalid, invalid, "numeric"},
		{"plain int", "int", invalid, invalid, invalid, "int"},
		{"datetime2", "datetime2", valid(8), invalid, invalid, "datetime2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, renderType(tt.dataType, tt.maxLen, tt.precision, tt.scale))
		})
	}
}
