package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talkregistration/internal/domain"
)

var talkCols = []string{"id", "title", "description", "location", "speakers", "start_time", "end_time", "max_attendees", "tags", "created_at", "updated_at"}

func newTalkRepo(t *testing.T, now time.Time) (*talkRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	repo := NewTalkRepository(db).(*talkRepository)
	repo.now = func() time.Time { return now }
	return repo, mock, func() { _ = db.Close() }
}

func TestTalkRepository_Create(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	start := time.Date(2025, 5, 22, 9, 0, 0, 0, time.UTC)
	max := 40

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr bool
	}{
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO talks`).
					WithArgs("Intro to X", "a talk about x testing", "Room 1", sqlmock.AnyArg(), start, start.Add(time.Hour), 40, sqlmock.AnyArg(), now, now).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("talk-uuid-1"))
			},
		},
		{
			name: "db error",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO talks`).WillReturnError(sql.ErrConnDone)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, done := newTalkRepo(t, now)
			defer done()
			tt.mock(mock)

			talk := domain.NewTalk("Intro to X", "a talk about x testing", "Room 1",
				[]domain.Speaker{{Name: "Ada"}}, start, start.Add(time.Hour), &max, []string{"Go", "go"})
			err := repo.Create(ctx, talk)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "talk-uuid-1", talk.ID)
				assert.Equal(t, now, talk.CreatedAt)
				assert.Equal(t, []string{"Go"}, talk.Tags)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestTalkRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, 5, 22, 9, 0, 0, 0, time.UTC)
	created := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		id      string
		mock    func(mock sqlmock.Sqlmock)
		check   func(t *testing.T, talk *domain.Talk)
		errIs   error
		wantErr bool
	}{
		{
			name: "found with capacity",
			id:   "talk-1",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT .+ FROM talks WHERE id = \$1`).
					WithArgs("talk-1").
					WillReturnRows(sqlmock.NewRows(talkCols).AddRow("talk-1", "Intro to X", "a talk about x testing", "Room 1",
						[]byte(`[{"name":"Ada","bio":"Engineer","photo":""}]`), start, start.Add(time.Hour), int64(40), "{Go,Cloud}", created, created))
			},
			check: func(t *testing.T, talk *domain.Talk) {
				assert.Equal(t, "talk-1", talk.ID)
				assert.Equal(t, []domain.Speaker{{Name: "Ada", Bio: "Engineer"}}, talk.Speakers)
				require.NotNil(t, talk.MaxAttendees)
				assert.Equal(t, 40, *talk.MaxAttendees)
				assert.Equal(t, []string{"Go", "Cloud"}, talk.Tags)
			},
		},
		{
			name: "found unlimited",
			id:   "talk-2",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT .+ FROM talks`).
					WithArgs("talk-2").
					WillReturnRows(sqlmock.NewRows(talkCols).AddRow("talk-2", "Keynote", "opening keynote", "Teatro",
						[]byte(`[]`), start, start.Add(time.Hour), nil, "{}", created, created))
			},
			check: func(t *testing.T, talk *domain.Talk) {
				assert.Nil(t, talk.MaxAttendees)
				assert.Empty(t, talk.Speakers)
				assert.NotNil(t, talk.Tags)
			},
		},
		{
			name: "no rows",
			id:   "missing",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT .+ FROM talks`).WithArgs("missing").WillReturnRows(sqlmock.NewRows(talkCols))
			},
			errIs:   domain.ErrNotFound,
			wantErr: true,
		},
		{
			name: "malformed uuid",
			id:   "not-a-uuid",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT .+ FROM talks`).WithArgs("not-a-uuid").WillReturnError(&pq.Error{Code: "22P02"})
			},
			errIs:   domain.ErrNotFound,
			wantErr: true,
		},
		{
			name: "db error",
			id:   "talk-1",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT .+ FROM talks`).WillReturnError(sql.ErrConnDone)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, done := newTalkRepo(t, time.Now())
			defer done()
			tt.mock(mock)

			talk, err := repo.GetByID(ctx, tt.id)
			if tt.wantErr {
				require.Error(t, err)
				if tt.errIs != nil {
					require.ErrorIs(t, err, tt.errIs)
				}
			} else {
				require.NoError(t, err)
				tt.check(t, talk)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestTalkRepository_List_filters(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, 5, 22, 9, 0, 0, 0, time.UTC)

	repo, mock, done := newTalkRepo(t, time.Now())
	defer done()

	mock.ExpectQuery(`SELECT .+ FROM talks WHERE EXISTS \(SELECT 1 FROM unnest\(tags\) AS tag WHERE LOWER\(tag\) = LOWER\(\$1\)\) AND LOWER\(location\) = LOWER\(\$2\) ORDER BY start_time`).
		WithArgs("AI", "Teatro Mayor San José").
		WillReturnRows(sqlmock.NewRows(talkCols).
			AddRow("t1", "GenAI", "genai en seguridad", "Teatro Mayor San José", []byte(`[]`), start, start.Add(time.Hour), nil, "{AI,Security}", start, start))

	talks, err := repo.List(ctx, domain.TalkFilter{Tag: "AI", Location: " Teatro Mayor San José "})
	require.NoError(t, err)
	require.Len(t, talks, 1)
	assert.Equal(t, "t1", talks[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTalkRepository_List_empty(t *testing.T) {
	repo, mock, done := newTalkRepo(t, time.Now())
	defer done()

	mock.ExpectQuery(`SELECT .+ FROM talks ORDER BY start_time`).WillReturnRows(sqlmock.NewRows(talkCols))

	talks, err := repo.List(context.Background(), domain.TalkFilter{})
	require.NoError(t, err)
	assert.NotNil(t, talks)
	assert.Empty(t, talks)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTalkRepository_Update(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 5, 2, 10, 0, 0, 0, time.UTC)
	start := time.Date(2025, 5, 22, 9, 0, 0, 0, time.UTC)
	title := "New title"

	t.Run("success", func(t *testing.T) {
		repo, mock, done := newTalkRepo(t, now)
		defer done()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .+ FROM talks WHERE id = \$1 FOR UPDATE`).
			WithArgs("t1").
			WillReturnRows(sqlmock.NewRows(talkCols).
				AddRow("t1", "Old title", "description here", "Room 1", []byte(`[]`), start, start.Add(time.Hour), int64(10), "{Go}", start, start))
		mock.ExpectExec(`UPDATE talks`).
			WithArgs("New title", "description here", "Room 1", sqlmock.AnyArg(), start, start.Add(time.Hour), nil, sqlmock.AnyArg(), now, "t1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		talk, err := repo.Update(ctx, "t1", domain.TalkPatch{Title: &title, ClearMaxAttendees: true})
		require.NoError(t, err)
		assert.Equal(t, "New title", talk.Title)
		assert.Nil(t, talk.MaxAttendees)
		assert.Equal(t, now, talk.UpdatedAt)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock, done := newTalkRepo(t, now)
		defer done()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .+ FOR UPDATE`).WithArgs("missing").WillReturnRows(sqlmock.NewRows(talkCols))
		mock.ExpectRollback()

		_, err := repo.Update(ctx, "missing", domain.TalkPatch{Title: &title})
		require.ErrorIs(t, err, domain.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTalkRepository_Delete(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		want    bool
		errIs   error
		wantErr bool
	}{
		{
			name: "deleted",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`DELETE FROM talks`).WithArgs("t1").WillReturnResult(sqlmock.NewResult(0, 1))
			},
			want: true,
		},
		{
			name: "nothing to delete",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`DELETE FROM talks`).WithArgs("t1").WillReturnResult(sqlmock.NewResult(0, 0))
			},
			want: false,
		},
		{
			name: "registrations still reference the talk",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`DELETE FROM talks`).WithArgs("t1").WillReturnError(&pq.Error{Code: "23503"})
			},
			errIs:   domain.ErrTalkHasRegistrations,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, done := newTalkRepo(t, time.Now())
			defer done()
			tt.mock(mock)

			got, err := repo.Delete(ctx, "t1")
			if tt.wantErr {
				require.ErrorIs(t, err, tt.errIs)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestTalkRepository_Count(t *testing.T) {
	repo, mock, done := newTalkRepo(t, time.Now())
	defer done()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM talks`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
