package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claudyne/claudyne-content-api/internal/models"
)

func newSubjectMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func subjectRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "title", "category", "level", "description", "review_status", "active", "version", "created_by", "created_at", "updated_at"})
}

func TestSubjectRepositoryList(t *testing.T) {
	db, mock, cleanup := newSubjectMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	rows := subjectRows().
		AddRow("s1", "Maths", "Sciences", "Tle", "desc", "APPROVED", true, 3, "admin", time.Now(), time.Now()).
		AddRow("s2", "Histoire", "Lettres", "3ème", "desc", "DRAFT", false, 1, "admin", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, category, level, description, review_status, active, version, created_by, created_at, updated_at FROM subjects ORDER BY created_at ASC, id ASC")).
		WillReturnRows(rows)

	subjects, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, subjects, 2)
	assert.Equal(t, "s1", subjects[0].ID)
	assert.Equal(t, models.ReviewStatusApproved, subjects[0].ReviewStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryListByLevel(t *testing.T) {
	db, mock, cleanup := newSubjectMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	rows := subjectRows().
		AddRow("s1", "Maths", "Sciences", "Tle", "desc", "APPROVED", true, 3, "admin", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, category, level, description, review_status, active, version, created_by, created_at, updated_at FROM subjects WHERE level = $1 ORDER BY created_at ASC, id ASC")).
		WithArgs("Tle").
		WillReturnRows(rows)

	subjects, err := repo.ListByLevel(context.Background(), "Tle")
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	assert.Equal(t, "Tle", subjects[0].Level)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newSubjectMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	mock.ExpectExec("INSERT INTO subjects").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	subject := &models.Subject{Title: "Maths", Category: "Sciences", Level: "Tle"}
	err := repo.Create(context.Background(), subject)
	require.NoError(t, err)

	assert.NotEmpty(t, subject.ID)
	assert.Equal(t, models.ReviewStatusDraft, subject.ReviewStatus)
	assert.False(t, subject.Active)
	assert.Equal(t, int64(1), subject.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryUpdateReviewStatus(t *testing.T) {
	db, mock, cleanup := newSubjectMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE subjects SET review_status = $1, version = version + 1, updated_at = $2\nWHERE id = $3 AND version = $4 RETURNING version")).
		WithArgs(models.ReviewStatusApproved, sqlmock.AnyArg(), "s1", int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(4))

	version, err := repo.UpdateReviewStatus(context.Background(), "s1", models.ReviewStatusApproved, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(4), version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryUpdateReviewStatusStaleVersion(t *testing.T) {
	db, mock, cleanup := newSubjectMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	// A mismatched base version updates zero rows.
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE subjects SET review_status = $1, version = version + 1, updated_at = $2\nWHERE id = $3 AND version = $4 RETURNING version")).
		WithArgs(models.ReviewStatusApproved, sqlmock.AnyArg(), "s1", int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"version"}))

	_, err := repo.UpdateReviewStatus(context.Background(), "s1", models.ReviewStatusApproved, 2)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryUpdateActive(t *testing.T) {
	db, mock, cleanup := newSubjectMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE subjects SET active = $1, version = version + 1, updated_at = $2\nWHERE id = $3 AND version = $4 RETURNING version")).
		WithArgs(true, sqlmock.AnyArg(), "s1", int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(2))

	version, err := repo.UpdateActive(context.Background(), "s1", true, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryDeleteCascades(t *testing.T) {
	db, mock, cleanup := newSubjectMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM lessons WHERE subject_id = $1")).
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM subjects WHERE id = $1")).
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Delete(context.Background(), "s1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newSubjectMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM lessons WHERE subject_id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM subjects WHERE id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
