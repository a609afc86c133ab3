package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Kyoronginus/accountlink/internal/data/pgxutil"
	"github.com/Kyoronginus/accountlink/internal/domain/account"
	apperrors "github.com/Kyoronginus/accountlink/internal/errors"
	"github.com/Kyoronginus/accountlink/internal/ports"
)

const accountColumns = `id, email, name, primary_auth_method, linked_auth_methods, created_at, updated_at`

const (
	accountByEmailQuery = `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	accountByIDQuery    = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	// ON CONFLICT without a target covers both the primary key and accounts_email_key.
	accountInsertQuery = `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT DO NOTHING
		RETURNING id`

	accountAddMethodQuery = `
		UPDATE accounts
		SET linked_auth_methods = CASE
				WHEN $2 = ANY(linked_auth_methods) THEN linked_auth_methods
				ELSE array_append(linked_auth_methods, $2)
			END,
			updated_at = $3
		WHERE id = $1
		RETURNING ` + accountColumns
)

// accountRow mirrors the accounts table for pgx.RowToStructByName.
type accountRow struct {
	ID                string    `db:"id"`
	Email             string    `db:"email"`
	Name              string    `db:"name"`
	PrimaryAuthMethod string    `db:"primary_auth_method"`
	LinkedAuthMethods []string  `db:"linked_auth_methods"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

func (r accountRow) toAccount() *account.Account {
	return &account.Account{
		ID:                r.ID,
		Email:             r.Email,
		Name:              r.Name,
		PrimaryAuthMethod: account.Provider(r.PrimaryAuthMethod),
		LinkedAuthMethods: account.LinkedMethodsFromStrings(r.LinkedAuthMethods),
		CreatedAt:         r.CreatedAt.UTC(),
		UpdatedAt:         r.UpdatedAt.UTC(),
	}
}

// AccountRepo is the PostgreSQL implementation of ports.AccountStore.
type AccountRepo struct {
	DB *sql.DB
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(db *sql.DB) *AccountRepo {
	return &AccountRepo{DB: db}
}

// FindByEmail looks up an account by its normalized email.
func (r *AccountRepo) FindByEmail(ctx context.Context, email string) (*account.Account, error) {
	return r.getOne(ctx, "find account by email", accountByEmailQuery, account.NormalizeEmail(email))
}

// GetByID looks up an account by id.
func (r *AccountRepo) GetByID(ctx context.Context, id string) (*account.Account, error) {
	return r.getOne(ctx, "get account by id", accountByIDQuery, id)
}

// CreateIfAbsent inserts acct unless the id or email already exists.
func (r *AccountRepo) CreateIfAbsent(ctx context.Context, acct account.Account) error {
	linked := acct.LinkedAuthMethods.Union(acct.PrimaryAuthMethod)
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var id string
		return conn.QueryRow(ctx, accountInsertQuery,
			acct.ID,
			account.NormalizeEmail(acct.Email),
			acct.Name,
			string(acct.PrimaryAuthMethod),
			linked.Strings(),
			acct.CreatedAt.UTC(),
			acct.UpdatedAt.UTC(),
		).Scan(&id)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return ports.ErrAccountExists
	}
	if err != nil {
		return mapAccountErr(err, "create account")
	}
	return nil
}

// AddLinkedMethod appends p to the linked set when missing and bumps updated_at.
func (r *AccountRepo) AddLinkedMethod(
	ctx context.Context,
	id string,
	p account.Provider,
	at time.Time,
) (*account.Account, error) {
	return r.getOne(ctx, "add linked method", accountAddMethodQuery, id, string(p), at.UTC())
}

func (r *AccountRepo) getOne(ctx context.Context, op, query string, args ...any) (*account.Account, error) {
	var row accountRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		row, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[accountRow])
		return err
	})
	if err != nil {
		return nil, mapAccountErr(err, op)
	}
	return row.toAccount(), nil
}

// mapAccountErr turns driver errors into the port's sentinels or AppErrors.
// Anything that is not a recognized data error is treated as a transport failure.
func mapAccountErr(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ports.ErrAccountNotFound
	}
	if errors.Is(err, sql.ErrConnDone) {
		return apperrors.Transport(err, op)
	}
	mapped := apperrors.MapDBError(err)
	if apperrors.IsConflict(mapped) {
		return ports.ErrAccountExists
	}
	var appErr *apperrors.AppError
	if errors.As(mapped, &appErr) {
		return fmt.Errorf("%s: %w", op, appErr)
	}
	return apperrors.Transport(err, op)
}
