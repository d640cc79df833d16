package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const paymentMethodColumns = `id, user_id, method_type, account_number, account_name, is_default, created_at`

const createPaymentMethod = `
INSERT INTO user_payment_methods (user_id, method_type, account_number, account_name, is_default)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + paymentMethodColumns

type CreatePaymentMethodParams struct {
	UserID        uuid.UUID
	MethodType    string
	AccountNumber string
	AccountName   pgtype.Text
	IsDefault     bool
}

func (q *Queries) CreatePaymentMethod(ctx context.Context, arg CreatePaymentMethodParams) (UserPaymentMethod, error) {
	row := q.db.QueryRow(ctx, createPaymentMethod,
		arg.UserID, arg.MethodType, arg.AccountNumber, arg.AccountName, arg.IsDefault)
	return scanPaymentMethod(row)
}

const getPaymentMethodForUser = `
SELECT ` + paymentMethodColumns + ` FROM user_payment_methods WHERE id = $1 AND user_id = $2
`

type GetPaymentMethodForUserParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

func (q *Queries) GetPaymentMethodForUser(ctx context.Context, arg GetPaymentMethodForUserParams) (UserPaymentMethod, error) {
	return scanPaymentMethod(q.db.QueryRow(ctx, getPaymentMethodForUser, arg.ID, arg.UserID))
}

const listPaymentMethodsByUser = `
SELECT ` + paymentMethodColumns + `
FROM user_payment_methods
WHERE user_id = $1
ORDER BY is_default DESC, created_at
`

func (q *Queries) ListPaymentMethodsByUser(ctx context.Context, userID uuid.UUID) ([]UserPaymentMethod, error) {
	rows, err := q.db.Query(ctx, listPaymentMethodsByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var methods []UserPaymentMethod
	for rows.Next() {
		m, err := scanPaymentMethod(rows)
		if err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	return methods, rows.Err()
}

const clearDefaultPaymentMethod = `
UPDATE user_payment_methods SET is_default = false WHERE user_id = $1 AND is_default = true
`

// ClearDefaultPaymentMethod unsets the current default; run in the same
// transaction as the write that promotes the new one.
func (q *Queries) ClearDefaultPaymentMethod(ctx context.Context, userID uuid.UUID) error {
	_, err := q.db.Exec(ctx, clearDefaultPaymentMethod, userID)
	return err
}

const setDefaultPaymentMethod = `
UPDATE user_payment_methods
SET is_default = true
WHERE id = $1 AND user_id = $2
RETURNING ` + paymentMethodColumns

type SetDefaultPaymentMethodParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

func (q *Queries) SetDefaultPaymentMethod(ctx context.Context, arg SetDefaultPaymentMethodParams) (UserPaymentMethod, error) {
	return scanPaymentMethod(q.db.QueryRow(ctx, setDefaultPaymentMethod, arg.ID, arg.UserID))
}

const deletePaymentMethod = `
DELETE FROM user_payment_methods WHERE id = $1 AND user_id = $2
`

type DeletePaymentMethodParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

func (q *Queries) DeletePaymentMethod(ctx context.Context, arg DeletePaymentMethodParams) (int64, error) {
	tag, err := q.db.Exec(ctx, deletePaymentMethod, arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanPaymentMethod(row interface{ Scan(...any) error }) (UserPaymentMethod, error) {
	var m UserPaymentMethod
	err := row.Scan(&m.ID, &m.UserID, &m.MethodType, &m.AccountNumber,
		&m.AccountName, &m.IsDefault, &m.CreatedAt)
	return m, err
}
