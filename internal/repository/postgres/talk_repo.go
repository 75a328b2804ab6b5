package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"talkregistration/internal/domain"
)

const talkColumns = `id, title, description, location, speakers, start_time, end_time, max_attendees, tags, created_at, updated_at`

type talkRepository struct {
	DB  *sql.DB
	now func() time.Time
}

func NewTalkRepository(db *sql.DB) domain.TalkRepository {
	return &talkRepository{DB: db, now: time.Now}
}

func scanTalk(row rowScanner) (*domain.Talk, error) {
	t := &domain.Talk{}
	var speakers []byte
	var maxAttendees sql.NullInt64
	var tags pq.StringArray
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Location, &speakers, &t.StartTime, &t.EndTime, &maxAttendees, &tags, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Speakers = []domain.Speaker{}
	if len(speakers) > 0 {
		if err := json.Unmarshal(speakers, &t.Speakers); err != nil {
			return nil, fmt.Errorf("decode speakers: %w", err)
		}
	}
	if maxAttendees.Valid {
		v := int(maxAttendees.Int64)
		t.MaxAttendees = &v
	}
	t.Tags = []string(tags)
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return t, nil
}

func encodeSpeakers(speakers []domain.Speaker) ([]byte, error) {
	if speakers == nil {
		speakers = []domain.Speaker{}
	}
	b, err := json.Marshal(speakers)
	if err != nil {
		return nil, fmt.Errorf("encode speakers: %w", err)
	}
	return b, nil
}

func nullableInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func (r *talkRepository) Create(ctx context.Context, t *domain.Talk) error {
	speakers, err := encodeSpeakers(t.Speakers)
	if err != nil {
		return err
	}
	now := r.now()
	t.Tags = domain.NormalizeTags(t.Tags)
	query := `
		INSERT INTO talks (title, description, location, speakers, start_time, end_time, max_attendees, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	if err := r.DB.QueryRowContext(ctx, query, t.Title, t.Description, t.Location, speakers, t.StartTime, t.EndTime,
		nullableInt(t.MaxAttendees), pq.Array(t.Tags), now, now).Scan(&t.ID); err != nil {
		return fmt.Errorf("insert talk: %w", err)
	}
	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

func (r *talkRepository) GetByID(ctx context.Context, id string) (*domain.Talk, error) {
	query := `SELECT ` + talkColumns + ` FROM talks WHERE id = $1`
	t, err := scanTalk(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isMalformedID(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *talkRepository) List(ctx context.Context, filter domain.TalkFilter) ([]*domain.Talk, error) {
	var where []string
	var args []any
	if filter.Tag != "" {
		args = append(args, filter.Tag)
		where = append(where, fmt.Sprintf("EXISTS (SELECT 1 FROM unnest(tags) AS tag WHERE LOWER(tag) = LOWER($%d))", len(args)))
	}
	if filter.Location != "" {
		args = append(args, strings.TrimSpace(filter.Location))
		where = append(where, fmt.Sprintf("LOWER(location) = LOWER($%d)", len(args)))
	}
	query := `SELECT ` + talkColumns + ` FROM talks`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY start_time ASC, id ASC`

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	talks := []*domain.Talk{}
	for rows.Next() {
		t, err := scanTalk(rows)
		if err != nil {
			return nil, err
		}
		talks = append(talks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return talks, nil
}

// Update locks the row, merges the patch in Go and writes the full record back.
func (r *talkRepository) Update(ctx context.Context, id string, patch domain.TalkPatch) (*domain.Talk, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	t, err := scanTalk(tx.QueryRowContext(ctx, `SELECT `+talkColumns+` FROM talks WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isMalformedID(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	patch.Apply(t)
	t.UpdatedAt = r.now()

	speakers, err := encodeSpeakers(t.Speakers)
	if err != nil {
		return nil, err
	}
	query := `
		UPDATE talks
		SET title = $1, description = $2, location = $3, speakers = $4, start_time = $5, end_time = $6,
		    max_attendees = $7, tags = $8, updated_at = $9
		WHERE id = $10
	`
	if _, err := tx.ExecContext(ctx, query, t.Title, t.Description, t.Location, speakers, t.StartTime, t.EndTime,
		nullableInt(t.MaxAttendees), pq.Array(t.Tags), t.UpdatedAt, id); err != nil {
		return nil, fmt.Errorf("update talk: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return t, nil
}

func (r *talkRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM talks WHERE id = $1`, id)
	if err != nil {
		if isMalformedID(err) {
			return false, nil
		}
		if pqCode(err) == codeForeignKeyViolation {
			return false, domain.ErrTalkHasRegistrations
		}
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *talkRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM talks`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
