package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"talkregistration/internal/domain"
)

const userColumns = `id, email, display_name, company, job_title, photo_url, role, created_at, updated_at`

type userRepository struct {
	DB     *sql.DB
	hasher domain.PasswordHasher
	now    func() time.Time
}

func NewUserRepository(db *sql.DB, hasher domain.PasswordHasher) domain.UserRepository {
	return &userRepository{DB: db, hasher: hasher, now: time.Now}
}

func scanUser(row rowScanner, withHash bool) (*domain.User, error) {
	u := &domain.User{}
	dest := []any{&u.ID, &u.Email, &u.DisplayName, &u.Company, &u.JobTitle, &u.PhotoURL, &u.Role, &u.CreatedAt, &u.UpdatedAt}
	if withHash {
		dest = append(dest, &u.PasswordHash)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *userRepository) Create(ctx context.Context, u *domain.User, password string) error {
	hash, err := r.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	now := r.now()
	query := `
		INSERT INTO users (email, password_hash, display_name, company, job_title, photo_url, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err = r.DB.QueryRowContext(ctx, query, u.Email, hash, u.DisplayName, u.Company, u.JobTitle, u.PhotoURL, u.Role, now, now).Scan(&u.ID)
	if err != nil {
		if pqCode(err) == codeUniqueViolation {
			return domain.ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	u.PasswordHash = ""
	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + `, password_hash FROM users WHERE LOWER(email) = LOWER($1)`
	u, err := scanUser(r.DB.QueryRowContext(ctx, query, strings.TrimSpace(email)), true)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.DB.QueryRowContext(ctx, query, id), false)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isMalformedID(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func nullableString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func (r *userRepository) Update(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error) {
	var hash sql.NullString
	if patch.Password != nil {
		h, err := r.hasher.Hash(*patch.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		hash = sql.NullString{String: h, Valid: true}
	}
	query := `
		UPDATE users
		SET display_name = COALESCE($2, display_name),
		    company = COALESCE($3, company),
		    job_title = COALESCE($4, job_title),
		    photo_url = COALESCE($5, photo_url),
		    role = COALESCE($6, role),
		    password_hash = COALESCE($7, password_hash),
		    updated_at = $8
		WHERE id = $1
		RETURNING ` + userColumns
	u, err := scanUser(r.DB.QueryRowContext(ctx, query, id,
		nullableString(patch.DisplayName), nullableString(patch.Company), nullableString(patch.JobTitle),
		nullableString(patch.PhotoURL), nullableString(patch.Role), hash, r.now()), false)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isMalformedID(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

func (r *userRepository) VerifyPassword(u *domain.User, password string) bool {
	if u == nil || u.PasswordHash == "" {
		return false
	}
	return r.hasher.Compare(u.PasswordHash, password) == nil
}
