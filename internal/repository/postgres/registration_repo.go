package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"talkregistration/internal/domain"
)

const registrationColumns = `id, user_id, talk_id, registration_date, status, attended, created_at, updated_at`

type registrationRepository struct {
	DB  *sql.DB
	now func() time.Time
}

func NewRegistrationRepository(db *sql.DB) domain.RegistrationRepository {
	return &registrationRepository{DB: db, now: time.Now}
}

func scanRegistration(row rowScanner) (*domain.Registration, error) {
	reg := &domain.Registration{}
	var status string
	if err := row.Scan(&reg.ID, &reg.UserID, &reg.TalkID, &reg.RegistrationDate, &status, &reg.Attended, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
		return nil, err
	}
	reg.Status = domain.RegistrationStatus(status)
	return reg, nil
}

// Create serializes registrations per talk by locking the talk row, then
// checks for a duplicate before checking capacity.
func (r *registrationRepository) Create(ctx context.Context, reg *domain.Registration, maxAttendees *int) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var locked string
	if err := tx.QueryRowContext(ctx, `SELECT id FROM talks WHERE id = $1 FOR UPDATE`, reg.TalkID).Scan(&locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isMalformedID(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("lock talk: %w", err)
	}

	var existingID, existingStatus string
	err = tx.QueryRowContext(ctx, `SELECT id, status FROM registrations WHERE user_id = $1 AND talk_id = $2`, reg.UserID, reg.TalkID).
		Scan(&existingID, &existingStatus)
	switch {
	case err == nil:
		if domain.RegistrationStatus(existingStatus) != domain.RegistrationCancelled {
			return domain.ErrAlreadyRegistered
		}
	case errors.Is(err, sql.ErrNoRows), isMalformedID(err):
		existingID = ""
	default:
		return fmt.Errorf("find existing registration: %w", err)
	}

	if maxAttendees != nil {
		var active int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations WHERE talk_id = $1 AND status <> 'cancelled'`, reg.TalkID).
			Scan(&active); err != nil {
			return fmt.Errorf("count registrations: %w", err)
		}
		if active >= *maxAttendees {
			return domain.ErrTalkFull
		}
	}

	if existingID != "" {
		if _, err := tx.ExecContext(ctx, `DELETE FROM registrations WHERE id = $1`, existingID); err != nil {
			return fmt.Errorf("replace cancelled registration: %w", err)
		}
	}

	now := r.now()
	status := reg.Status
	if status == "" {
		status = domain.RegistrationConfirmed
	}
	registrationDate := reg.RegistrationDate
	if registrationDate.IsZero() {
		registrationDate = now
	}
	query := `
		INSERT INTO registrations (user_id, talk_id, registration_date, status, attended, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var id string
	if err := tx.QueryRowContext(ctx, query, reg.UserID, reg.TalkID, registrationDate, string(status), reg.Attended, now, now).Scan(&id); err != nil {
		switch pqCode(err) {
		case codeUniqueViolation:
			return domain.ErrAlreadyRegistered
		case codeForeignKeyViolation, codeInvalidTextRepr:
			return domain.ErrNotFound
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	reg.ID = id
	reg.Status = status
	reg.RegistrationDate = registrationDate
	reg.CreatedAt = now
	reg.UpdatedAt = now
	return nil
}

func (r *registrationRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Registration, error) {
	reg, err := scanRegistration(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isMalformedID(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (r *registrationRepository) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	return r.getOne(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, id)
}

func (r *registrationRepository) GetByUserAndTalk(ctx context.Context, userID, talkID string) (*domain.Registration, error) {
	if userID == "" || talkID == "" {
		return nil, domain.ErrNotFound
	}
	return r.getOne(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE user_id = $1 AND talk_id = $2`, userID, talkID)
}

func (r *registrationRepository) list(ctx context.Context, query string, key string) ([]*domain.Registration, error) {
	regs := []*domain.Registration{}
	if key == "" {
		return regs, nil
	}
	rows, err := r.DB.QueryContext(ctx, query, key)
	if err != nil {
		if isMalformedID(err) {
			return regs, nil
		}
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return regs, nil
}

func (r *registrationRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Registration, error) {
	return r.list(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE user_id = $1 ORDER BY registration_date ASC, id ASC`, userID)
}

func (r *registrationRepository) ListByTalkID(ctx context.Context, talkID string) ([]*domain.Registration, error) {
	return r.list(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE talk_id = $1 ORDER BY registration_date ASC, id ASC`, talkID)
}

func (r *registrationRepository) CountActiveByTalkID(ctx context.Context, talkID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations WHERE talk_id = $1 AND status <> 'cancelled'`, talkID).Scan(&n)
	if err != nil {
		if isMalformedID(err) {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

func (r *registrationRepository) Update(ctx context.Context, id string, patch domain.RegistrationPatch) (*domain.Registration, error) {
	var status sql.NullString
	if patch.Status != nil {
		status = sql.NullString{String: string(*patch.Status), Valid: true}
	}
	var attended sql.NullBool
	if patch.Attended != nil {
		attended = sql.NullBool{Bool: *patch.Attended, Valid: true}
	}
	query := `
		UPDATE registrations
		SET status = COALESCE($2, status), attended = COALESCE($3, attended), updated_at = $4
		WHERE id = $1
		RETURNING ` + registrationColumns
	return r.getOne(ctx, query, id, status, attended, r.now())
}

func (r *registrationRepository) Cancel(ctx context.Context, id string) (*domain.Registration, error) {
	status := domain.RegistrationCancelled
	return r.Update(ctx, id, domain.RegistrationPatch{Status: &status})
}

func (r *registrationRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM registrations WHERE id = $1`, id)
	if err != nil {
		if isMalformedID(err) {
			return false, nil
		}
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
