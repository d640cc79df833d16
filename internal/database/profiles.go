package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createProfile = `
INSERT INTO profiles (email, hashed_password, full_name, phone, user_type)
VALUES ($1, $2, $3, $4, $5)
RETURNING user_id, email, hashed_password, full_name, phone, user_type, created_at, updated_at
`

type CreateProfileParams struct {
	Email          string
	HashedPassword string
	FullName       string
	Phone          pgtype.Text
	UserType       UserType
}

func (q *Queries) CreateProfile(ctx context.Context, arg CreateProfileParams) (Profile, error) {
	row := q.db.QueryRow(ctx, createProfile,
		arg.Email, arg.HashedPassword, arg.FullName, arg.Phone, arg.UserType)
	return scanProfile(row)
}

const getProfileByEmail = `
SELECT user_id, email, hashed_password, full_name, phone, user_type, created_at, updated_at
FROM profiles
WHERE email = $1
`

func (q *Queries) GetProfileByEmail(ctx context.Context, email string) (Profile, error) {
	return scanProfile(q.db.QueryRow(ctx, getProfileByEmail, email))
}

const getProfile = `
SELECT user_id, email, hashed_password, full_name, phone, user_type, created_at, updated_at
FROM profiles
WHERE user_id = $1
`

func (q *Queries) GetProfile(ctx context.Context, userID uuid.UUID) (Profile, error) {
	return scanProfile(q.db.QueryRow(ctx, getProfile, userID))
}

const updateProfile = `
UPDATE profiles
SET full_name = $2, phone = $3, updated_at = now()
WHERE user_id = $1
RETURNING user_id, email, hashed_password, full_name, phone, user_type, created_at, updated_at
`

type UpdateProfileParams struct {
	UserID   uuid.UUID
	FullName string
	Phone    pgtype.Text
}

func (q *Queries) UpdateProfile(ctx context.Context, arg UpdateProfileParams) (Profile, error) {
	return scanProfile(q.db.QueryRow(ctx, updateProfile, arg.UserID, arg.FullName, arg.Phone))
}

func scanProfile(row interface{ Scan(...any) error }) (Profile, error) {
	var p Profile
	err := row.Scan(&p.UserID, &p.Email, &p.HashedPassword, &p.FullName,
		&p.Phone, &p.UserType, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
