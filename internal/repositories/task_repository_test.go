package repositories

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habitvault/internal/models"
)

var taskCols = []string{
	"id", "user_id", "title", "description", "type", "is_completed", "completed_at",
	"priority", "is_active", "time_of_day", "deadline", "reminded_at", "created_at", "updated_at",
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestListDueForReminder_FiltersAndJoinsProfile(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTaskRepository(db)

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	deadline := now.Add(30 * time.Minute)

	cols := append(append([]string{}, taskCols...), "p_id", "email", "name")
	rows := sqlmock.NewRows(cols).AddRow(
		"A", "u1", "Ship report", nil, "DEADLINE", false, nil,
		"urgent", true, nil, deadline, nil, now, now,
		"u1", "u1@example.com", "Ana",
	)

	mock.ExpectQuery(regexp.QuoteMeta("INNER JOIN profiles p ON p.id = t.user_id")).
		WithArgs(now, now.Add(time.Hour)).
		WillReturnRows(rows)

	got, err := repo.ListDueForReminder(context.Background(), now, now.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)

	c := got[0]
	assert.Equal(t, "A", c.Task.ID)
	assert.Equal(t, models.KindDeadline, c.Task.Kind)
	assert.Equal(t, models.PriorityUrgent, c.Task.Priority)
	assert.Nil(t, c.Task.Description)
	assert.Nil(t, c.Task.RemindedAt)
	require.NotNil(t, c.Task.Deadline)
	assert.True(t, deadline.Equal(*c.Task.Deadline))
	assert.Equal(t, "u1@example.com", c.Profile.Email)
	assert.Equal(t, "Ana", c.Profile.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListDueForReminder_QueryPredicates(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTaskRepository(db)

	from := time.Now()
	mock.ExpectQuery(`t.type = 'DEADLINE'.*t.is_active = TRUE.*t.deadline >= \$1.*t.deadline <= \$2.*t.reminded_at IS NULL`).
		WithArgs(from, from.Add(time.Hour)).
		WillReturnRows(sqlmock.NewRows(taskCols))

	got, err := repo.ListDueForReminder(context.Background(), from, from.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkReminded_OnlyWhenNull(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTaskRepository(db)

	at := time.Now()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE tasks SET reminded_at=$1, updated_at=$1 WHERE id=$2 AND reminded_at IS NULL`)).
		WithArgs(at, "A").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkReminded(context.Background(), "A", at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByID_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTaskRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM tasks WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(taskCols))

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestListActiveByUser_ScansDailyTask(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTaskRepository(db)

	now := time.Now()
	mock.ExpectQuery(`WHERE user_id = \$1 AND is_active = \$2 ORDER BY created_at DESC`).
		WithArgs("u1", true).
		WillReturnRows(sqlmock.NewRows(taskCols).AddRow(
			"B", "u1", "Stretch", "ten minutes", "DAILY", false, nil,
			"normal", true, "09:00:00", nil, nil, now, now,
		))

	got, err := repo.ListActiveByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "09:00", got[0].TimeOfDayMinute())
	require.NotNil(t, got[0].Description)
	assert.Equal(t, "ten minutes", *got[0].Description)
	assert.Nil(t, got[0].Deadline)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_NoRows(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTaskRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tasks WHERE id = $1")).
		WithArgs("x").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "x"), ErrTaskNotFound)
}

func TestUpdate_ReminderColumnFollowsResetFlag(t *testing.T) {
	now := time.Now()
	task := &models.Task{
		ID: "A", Title: "Report v2", Kind: models.KindDeadline, Priority: models.PriorityNormal,
		Active: true, Deadline: &now, UpdatedAt: now,
	}

	for _, reset := range []bool{false, true} {
		db, mock := newMock(t)
		repo := NewTaskRepository(db)

		mock.ExpectExec(regexp.QuoteMeta(`reminded_at = CASE WHEN $8::boolean THEN NULL ELSE reminded_at END`)).
			WithArgs("Report v2", nil, models.KindDeadline, models.PriorityNormal, true,
				nil, &now, reset, now, "A").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Update(context.Background(), task, reset))
		assert.NoError(t, mock.ExpectationsWereMet())
	}
}
