package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/samtm/motomeet/internal/apperror"
	"github.com/samtm/motomeet/internal/model"
	"github.com/samtm/motomeet/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// Create inserts a new user row. The email is the primary key; a duplicate
// is reported as a validation failure ("already exists, please log in"),
// checked inside the same transaction as the insert so a racing signup
// can't slip between check and write.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return apperror.Storage("beginning signup transaction", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE email = ?`, user.Email,
	).Scan(&exists)
	if err != nil {
		return apperror.Storage("checking existing user", err)
	}
	if exists > 0 {
		return apperror.ValidationFailed("email", "user already exists, please log in")
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (email, name, password_hash, make, model, city, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.Make,
		user.Model,
		user.City,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return apperror.Storage("inserting user", err)
	}

	if err := tx.Commit(); err != nil {
		return apperror.Storage("committing signup", err)
	}
	return nil
}

// GetByEmail retrieves a user by their email.
// Returns apperror.ErrNotFound if no such user exists.
func (db *DB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var (
		u       model.User
		lat     sql.NullFloat64
		lng     sql.NullFloat64
		radiusM sql.NullInt64
	)

	err := db.conn.QueryRowContext(ctx,
		`SELECT email, name, password_hash, make, model, latitude, longitude, radius_m, city, created_at, updated_at
		 FROM users WHERE email = ?`,
		email,
	).Scan(
		&u.Email,
		&u.Name,
		&u.PasswordHash,
		&u.Make,
		&u.Model,
		&lat,
		&lng,
		&radiusM,
		&u.City,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", email)
		}
		return nil, apperror.Storage("getting user", err)
	}

	// Location columns are NULL until the first location update.
	if lat.Valid && lng.Valid && radiusM.Valid {
		u.Latitude = lat.Float64
		u.Longitude = lng.Float64
		u.RadiusM = radiusM.Int64
		u.HasLocation = true
	}

	return &u, nil
}

// UpsertOAuth inserts or refreshes an account created through an identity
// provider. Such accounts have no password hash; they authenticate only via
// the provider. An existing password account with the same email keeps its
// hash — only the display name is refreshed.
func (db *DB) UpsertOAuth(ctx context.Context, user *model.User) error {
	now := time.Now()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET name = ?, updated_at = ? WHERE email = ?`,
		user.Name, now, user.Email,
	)
	if err != nil {
		return apperror.Storage("updating oauth user", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return apperror.Storage("checking rows affected", err)
	}
	if affected > 0 {
		user.UpdatedAt = now
		return nil
	}

	user.CreatedAt = now
	user.UpdatedAt = now
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (email, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		user.Email, user.Name, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return apperror.Storage("inserting oauth user", err)
	}
	return nil
}

// UpdateLocation saves the user's geocoded location. radiusM is meters;
// conversion from user-facing miles happens at the boundary, never here.
func (db *DB) UpdateLocation(ctx context.Context, email string, lat, lng float64, radiusM int64, city string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET latitude = ?, longitude = ?, radius_m = ?, city = ?, updated_at = ?
		 WHERE email = ?`,
		lat, lng, radiusM, city, time.Now(), email,
	)
	if err != nil {
		return apperror.Storage("updating location", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return apperror.Storage("checking rows affected", err)
	}
	if affected == 0 {
		return apperror.NotFound("user", email)
	}
	return nil
}
