package database

import (
	"context"

	"github.com/google/uuid"
)

const createCategory = `
INSERT INTO categories (name, slug)
VALUES ($1, $2)
RETURNING id, name, slug
`

type CreateCategoryParams struct {
	Name string
	Slug string
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	var c Category
	err := q.db.QueryRow(ctx, createCategory, arg.Name, arg.Slug).Scan(&c.ID, &c.Name, &c.Slug)
	return c, err
}

const listCategories = `
SELECT id, name, slug FROM categories ORDER BY name
`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.Query(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

const getCategory = `
SELECT id, name, slug FROM categories WHERE id = $1
`

func (q *Queries) GetCategory(ctx context.Context, id uuid.UUID) (Category, error) {
	var c Category
	err := q.db.QueryRow(ctx, getCategory, id).Scan(&c.ID, &c.Name, &c.Slug)
	return c, err
}
