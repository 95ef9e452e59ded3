package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/savedcarts/pkg/database"
	apperrors "github.com/utafrali/savedcarts/pkg/errors"
)

// AttributeStore implements repository.AttributeStore on the user_meta table.
type AttributeStore struct {
	db database.DBTX
}

// NewAttributeStore creates a new PostgreSQL-backed user attribute store.
func NewAttributeStore(db database.DBTX) *AttributeStore {
	return &AttributeStore{db: db}
}

// Get returns the raw attribute value.
func (s *AttributeStore) Get(ctx context.Context, userID, key string) (data []byte, err error) {
	query := `SELECT meta_value FROM user_meta WHERE user_id = $1 AND meta_key = $2`

	ctx, end := database.TraceQuery(ctx, "GetUserMeta", query)
	defer func() { end(err) }()

	if err = s.db.QueryRow(ctx, query, userID, key).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("user attribute", userID+"/"+key)
		}
		return nil, fmt.Errorf("select user meta: %w", err)
	}
	return data, nil
}

// Set upserts the attribute value.
func (s *AttributeStore) Set(ctx context.Context, userID, key string, value []byte) (err error) {
	query := `
		INSERT INTO user_meta (user_id, meta_key, meta_value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, meta_key)
		DO UPDATE SET meta_value = EXCLUDED.meta_value, updated_at = EXCLUDED.updated_at`

	ctx, end := database.TraceQuery(ctx, "SetUserMeta", query)
	defer func() { end(err) }()

	if _, err = s.db.Exec(ctx, query, userID, key, value); err != nil {
		return fmt.Errorf("upsert user meta: %w", err)
	}
	return nil
}

// DeleteAll removes every attribute row of the user.
func (s *AttributeStore) DeleteAll(ctx context.Context, userID string) (err error) {
	query := `DELETE FROM user_meta WHERE user_id = $1`

	ctx, end := database.TraceQuery(ctx, "DeleteUserMeta", query)
	defer func() { end(err) }()

	if _, err = s.db.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("delete user meta: %w", err)
	}
	return nil
}
