package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnforcer_StaticPolicies(t *testing.T) {
	// Arrange
	en, err := New(NewAdapter(nil, []string{
		"p, admin, notification, create_any",
		"g, 42, admin",
		"",
		"garbage",
	}))
	require.NoError(t, err)

	// Act
	admin, err := en.Allowed(context.Background(), "42", "notification", "create_any")
	require.NoError(t, err)
	other, err := en.Allowed(context.Background(), "7", "notification", "create_any")
	require.NoError(t, err)

	// Assert
	assert.True(t, admin)
	assert.False(t, other)
}

func TestEnforcer_DatabasePolicies(t *testing.T) {
	// Arrange
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"ptype", "v0", "v1", "v2", "v3", "v4", "v5"}
	mock.ExpectQuery("SELECT ptype").
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow("p", "support", "*", "*", "", "", "").
			AddRow("g", "9", "support", "", "", "", ""))

	// Act
	en, err := New(NewAdapter(mock, nil))
	require.NoError(t, err)
	ok, err := en.Allowed(context.Background(), "9", "notification", "create_any")

	// Assert
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnforcer_DatabaseError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT ptype").WillReturnError(errors.New("relation does not exist"))

	_, err = New(NewAdapter(mock, nil))
	assert.Error(t, err)
}

func TestEnforcer_Reload(t *testing.T) {
	// Arrange
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"ptype", "v0", "v1", "v2", "v3", "v4", "v5"}
	mock.ExpectQuery("SELECT ptype").
		WillReturnRows(pgxmock.NewRows(cols).AddRow("g", "9", "admin", "", "", "", ""))
	mock.ExpectQuery("SELECT ptype").
		WillReturnRows(pgxmock.NewRows(cols))

	en, err := New(NewAdapter(mock, []string{"p, admin, notification, create_any"}))
	require.NoError(t, err)
	before, err := en.Allowed(context.Background(), "9", "notification", "create_any")
	require.NoError(t, err)

	// Act
	require.NoError(t, en.Reload())
	after, err := en.Allowed(context.Background(), "9", "notification", "create_any")
	require.NoError(t, err)

	// Assert
	assert.True(t, before)
	assert.False(t, after, "revoked grant must not survive a reload")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReloader_CloseBeforeStart(t *testing.T) {
	assert.NoError(t, NewReloader(nil, nil).Close())
}

func TestAdapter_ReadOnly(t *testing.T) {
	a := NewAdapter(nil, nil)
	assert.ErrorIs(t, a.AddPolicy("p", "p", []string{"a"}), ErrReadOnly)
	assert.ErrorIs(t, a.RemovePolicy("p", "p", []string{"a"}), ErrReadOnly)
	assert.ErrorIs(t, a.RemoveFilteredPolicy("p", "p", 0), ErrReadOnly)
	assert.ErrorIs(t, a.SavePolicy(nil), ErrReadOnly)
}

func TestParseLine(t *testing.T) {
	assert.Equal(t, []string{"p", "admin", "notification", "create_any"}, ParseLine(" p , admin,notification, create_any, "))
}
