package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createStatusHistory = `
INSERT INTO order_status_history (order_id, status, changed_by, notes)
VALUES ($1, $2, $3, $4)
RETURNING id, order_id, status, changed_by, notes, created_at
`

type CreateStatusHistoryParams struct {
	OrderID   uuid.UUID
	Status    OrderStatus
	ChangedBy uuid.UUID
	Notes     pgtype.Text
}

func (q *Queries) CreateStatusHistory(ctx context.Context, arg CreateStatusHistoryParams) (OrderStatusHistory, error) {
	var h OrderStatusHistory
	err := q.db.QueryRow(ctx, createStatusHistory, arg.OrderID, arg.Status, arg.ChangedBy, arg.Notes).
		Scan(&h.ID, &h.OrderID, &h.Status, &h.ChangedBy, &h.Notes, &h.CreatedAt)
	return h, err
}

const listStatusHistory = `
SELECT id, order_id, status, changed_by, notes, created_at
FROM order_status_history
WHERE order_id = $1
ORDER BY created_at
`

func (q *Queries) ListStatusHistory(ctx context.Context, orderID uuid.UUID) ([]OrderStatusHistory, error) {
	rows, err := q.db.Query(ctx, listStatusHistory, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []OrderStatusHistory
	for rows.Next() {
		var h OrderStatusHistory
		if err := rows.Scan(&h.ID, &h.OrderID, &h.Status, &h.ChangedBy, &h.Notes, &h.CreatedAt); err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	return history, rows.Err()
}
