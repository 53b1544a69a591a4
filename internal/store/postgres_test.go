package store

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{"id", "user_id", "title", "content", "created_at", "updated_at"}

func newMockPostgresStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	st := &PostgresStore{db: sqlx.NewDb(db, "postgres")}
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		st.Close()
	})
	return st, mock
}

func TestPostgresStore_Create(t *testing.T) {
	st, mock := newMockPostgresStore(t)
	now := time.Now().UTC()
	id := uuid.New()

	mock.ExpectQuery("INSERT INTO articles").
		WithArgs(sqlmock.AnyArg(), "user-1", "Example title", "Example content", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(id.String(), "user-1", "Example title", "Example content", now, now))

	article, err := st.Create(context.Background(), "user-1", "Example title", "Example content")
	require.NoError(t, err)
	assert.Equal(t, id, article.ID)
	assert.Equal(t, "user-1", article.UserID)
	assert.Equal(t, "Example content", article.Content)
}

func TestPostgresStore_Create_ValidationSkipsDatabase(t *testing.T) {
	st, _ := newMockPostgresStore(t)

	_, err := st.Create(context.Background(), "user-1", "", "body")

	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestPostgresStore_FindByID(t *testing.T) {
	id := uuid.New()
	now := time.Now().UTC()

	testCases := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		wantErr   error
	}{
		{
			name: "found",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT (.+) FROM articles WHERE id").
					WithArgs(id).
					WillReturnRows(sqlmock.NewRows(columns).
						AddRow(id.String(), "user-1", "t", "c", now, now))
			},
		},
		{
			name: "missing row maps to ErrNotFound",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT (.+) FROM articles WHERE id").
					WithArgs(id).
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: ErrNotFound,
		},
		{
			name: "driver error is wrapped",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT (.+) FROM articles WHERE id").
					WithArgs(id).
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: sql.ErrConnDone,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			st, mock := newMockPostgresStore(t)
			tc.setupMock(mock)

			article, err := st.FindByID(context.Background(), id)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, id, article.ID)
		})
	}
}

func TestPostgresStore_ListAll(t *testing.T) {
	st, mock := newMockPostgresStore(t)
	now := time.Now().UTC()
	newer, older := uuid.New(), uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM articles ORDER BY created_at DESC").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(newer.String(), "user-1", "b", "", now, now).
			AddRow(older.String(), "user-1", "a", "", now.Add(-time.Minute), now.Add(-time.Minute)))

	list, err := st.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer, list[0].ID)
	assert.Equal(t, older, list[1].ID)
}

func TestPostgresStore_Update(t *testing.T) {
	id := uuid.New()
	now := time.Now().UTC()

	t.Run("locks then updates", func(t *testing.T) {
		st, mock := newMockPostgresStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FOR UPDATE").
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(id.String(), "user-1", "old", "old", now, now))
		mock.ExpectQuery("UPDATE articles SET").
			WithArgs(id, "new", "body", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(id.String(), "user-1", "new", "body", now, now))
		mock.ExpectCommit()

		article, err := st.Update(context.Background(), id, "new", "body")
		require.NoError(t, err)
		assert.Equal(t, "new", article.Title)
	})

	t.Run("missing row rolls back", func(t *testing.T) {
		st, mock := newMockPostgresStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FOR UPDATE").
			WithArgs(id).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, err := st.Update(context.Background(), id, "new", "body")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("empty title rolls back", func(t *testing.T) {
		st, mock := newMockPostgresStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FOR UPDATE").
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(id.String(), "user-1", "old", "old", now, now))
		mock.ExpectRollback()

		_, err := st.Update(context.Background(), id, " ", "body")
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})
}

func TestPostgresStore_Delete(t *testing.T) {
	id := uuid.New()

	t.Run("deleted", func(t *testing.T) {
		st, mock := newMockPostgresStore(t)
		mock.ExpectExec("DELETE FROM articles").
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, st.Delete(context.Background(), id))
	})

	t.Run("nothing deleted", func(t *testing.T) {
		st, mock := newMockPostgresStore(t)
		mock.ExpectExec("DELETE FROM articles").
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, st.Delete(context.Background(), id), ErrNotFound)
	})
}

func TestPostgresStore_UpdateAndDelete(t *testing.T) {
	id := uuid.New()
	now := time.Now().UTC()

	t.Run("update after delete finds no row to lock", func(t *testing.T) {
		st, mock := newMockPostgresStore(t)
		mock.ExpectExec("DELETE FROM articles").
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FOR UPDATE").
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(columns))
		mock.ExpectRollback()

		require.NoError(t, st.Delete(context.Background(), id))
		_, err := st.Update(context.Background(), id, "new", "body")
		assert.ErrorIs(t, err, ErrNotFound, "a deleted article is never written back")
	})

	t.Run("delete runs while update holds the row", func(t *testing.T) {
		st, mock := newMockPostgresStore(t)
		mock.MatchExpectationsInOrder(false)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FOR UPDATE").
			WithArgs(id).
			WillDelayFor(50 * time.Millisecond).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(id.String(), "user-1", "old", "old", now, now))
		mock.ExpectQuery("UPDATE articles SET").
			WithArgs(id, "new", "body", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(id.String(), "user-1", "new", "body", now, now))
		mock.ExpectCommit()
		mock.ExpectExec("DELETE FROM articles").
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := st.Update(context.Background(), id, "new", "body")
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, st.Delete(context.Background(), id))
		}()
		wg.Wait()
	})
}
