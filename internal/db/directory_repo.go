package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"counseldesk/internal/types"
)

// DirectoryRepository provides read-only lookups over the case, client,
// lawyer, and user tables owned by the practice-management core. The
// recipient resolver walks ownership edges through these lookups at
// computation time; nothing is cached, so reassignments take effect on the
// next resolution.
//
// Every lookup returns (nil, nil) when the record is absent. The resolver
// treats a missing edge as "omit that recipient", not as a failure.
type DirectoryRepository struct {
	db DBTX
}

// NewDirectoryRepository creates a new DirectoryRepository backed by the
// given database connection (pool or transaction).
func NewDirectoryRepository(db DBTX) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

// CaseByID returns the case, or (nil, nil) when absent.
func (r *DirectoryRepository) CaseByID(ctx context.Context, id string) (*types.Case, error) {
	var c types.Case
	err := r.db.QueryRow(ctx,
		`SELECT id, owner_user_id, COALESCE(client_id::text, ''), COALESCE(lawyer_id::text, ''), title
		 FROM cases WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.OwnerUserID, &c.ClientID, &c.LawyerID, &c.Title)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to get case", err)
	}
	return &c, nil
}

// ClientByID returns the client, or (nil, nil) when absent.
func (r *DirectoryRepository) ClientByID(ctx context.Context, id string) (*types.Client, error) {
	var c types.Client
	err := r.db.QueryRow(ctx,
		`SELECT id, owner_user_id, name FROM clients WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.OwnerUserID, &c.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to get client", err)
	}
	return &c, nil
}

// LawyerByID returns the lawyer, or (nil, nil) when absent.
func (r *DirectoryRepository) LawyerByID(ctx context.Context, id string) (*types.Lawyer, error) {
	var l types.Lawyer
	err := r.db.QueryRow(ctx,
		`SELECT id, owner_user_id, name FROM lawyers WHERE id = $1`,
		id,
	).Scan(&l.ID, &l.OwnerUserID, &l.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to get lawyer", err)
	}
	return &l, nil
}

// UserByID returns the user, or (nil, nil) when absent. TimeZone may be
// empty; callers default it to UTC.
func (r *DirectoryRepository) UserByID(ctx context.Context, id string) (*types.User, error) {
	var u types.User
	err := r.db.QueryRow(ctx,
		`SELECT id, email, COALESCE(timezone, '') FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Email, &u.TimeZone)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to get user", err)
	}
	return &u, nil
}
