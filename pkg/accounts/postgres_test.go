package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alohawaii-travel/api/pkg/auth"
)

func accountRows(account *Account) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "display_name", "avatar_url", "role", "active",
		"domain", "last_login_at", "created_at", "updated_at",
	}).AddRow(
		account.ID, account.Email, account.DisplayName, account.AvatarURL,
		account.Role.String(), account.Active, account.Domain,
		account.LastLoginAt, account.CreatedAt, account.UpdatedAt,
	)
}

func TestPostgresCreateDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505"})

	store := NewPostgresStore(db)
	err = store.Create(context.Background(), &Account{
		ID:     "id-1",
		Email:  "kai@alohawaii.travel",
		Role:   auth.RolePending,
		Active: true,
		Domain: "alohawaii.travel",
	})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	expected := &Account{
		ID:        "id-1",
		Email:     "kai@alohawaii.travel",
		Role:      auth.RoleStaff,
		Active:    true,
		Domain:    "alohawaii.travel",
		CreatedAt: now,
		UpdatedAt: now,
	}
	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("kai@alohawaii.travel").
		WillReturnRows(accountRows(expected))

	store := NewPostgresStore(db)
	account, err := store.FindByEmail(context.Background(), "Kai@Alohawaii.Travel")
	require.NoError(t, err)
	assert.Equal(t, expected.ID, account.ID)
	assert.Equal(t, auth.RoleStaff, account.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindByEmailNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("missing@alohawaii.travel").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	store := NewPostgresStore(db)
	_, err = store.FindByEmail(context.Background(), "missing@alohawaii.travel")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresCorruptRole(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "email", "display_name", "avatar_url", "role", "active",
		"domain", "last_login_at", "created_at", "updated_at",
	}).AddRow("id-1", "kai@alohawaii.travel", "", "", "WIZARD", true,
		"alohawaii.travel", nil, now, now)
	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs("id-1").
		WillReturnRows(rows)

	store := NewPostgresStore(db)
	_, err = store.FindByID(context.Background(), "id-1")
	assert.Error(t, err, "an unknown persisted role never becomes usable")
}

func TestPostgresSetRoleRejectsInvalid(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)
	_, err = store.SetRole(context.Background(), "id-1", auth.Role(42))
	assert.Error(t, err)
}
