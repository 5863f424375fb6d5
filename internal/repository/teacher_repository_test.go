package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examdesk/exam-duty-api/internal/models"
)

func teacherRows(teachers ...models.Teacher) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "full_name", "email", "role", "subjects", "available_days", "active", "created_at", "updated_at"})
	for _, teacher := range teachers {
		subjects, _ := teacher.Subjects.Value()
		days, _ := teacher.AvailableDays.Value()
		rows.AddRow(teacher.ID, teacher.FullName, teacher.Email, teacher.Role, subjects, days, teacher.Active, time.Now(), time.Now())
	}
	return rows
}

func TestTeacherRepositoryListInvigilators(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTeacherRepository(db)
	stored := models.Teacher{
		ID:            "t1",
		FullName:      "Asha Rao",
		Email:         "asha@school.test",
		Role:          models.RoleTeacher,
		Subjects:      []string{"Mathematics"},
		AvailableDays: []string{"Monday", "Wednesday"},
		Active:        true,
	}
	mock.ExpectQuery(regexp.QuoteMeta("WHERE role = $1 AND active = TRUE")).
		WithArgs(models.RoleTeacher).
		WillReturnRows(teacherRows(stored))

	teachers, err := repo.ListInvigilators(context.Background())
	require.NoError(t, err)
	require.Len(t, teachers, 1)
	assert.Equal(t, "Asha Rao", teachers[0].FullName)
	assert.True(t, teachers[0].AvailableOn("Monday"))
	assert.False(t, teachers[0].AvailableOn("Tuesday"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTeacherRepository(db)
	active := true
	stored := models.Teacher{
		ID: "t1", FullName: "Asha Rao", Email: "asha@school.test",
		Role: models.RoleTeacher, Active: true,
	}
	mock.ExpectQuery(regexp.QuoteMeta("role = $1 AND active = $2")).
		WithArgs(models.RoleTeacher, true).
		WillReturnRows(teacherRows(stored))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs(models.RoleTeacher, true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	teachers, total, err := repo.List(context.Background(), models.TeacherFilter{Role: models.RoleTeacher, Active: &active})
	require.NoError(t, err)
	require.Len(t, teachers, 1)
	assert.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTeacherRepository(db)
	stored := models.Teacher{
		ID: "t1", FullName: "Asha Rao", Email: "asha@school.test",
		Role: models.RoleTeacher, AvailableDays: []string{"Friday"}, Active: true,
	}
	mock.ExpectQuery(regexp.QuoteMeta("FROM teachers WHERE id = $1")).
		WithArgs("t1").
		WillReturnRows(teacherRows(stored))

	teacher, err := repo.FindByID(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", teacher.ID)
	assert.True(t, teacher.AvailableOn("Friday"))
	require.NoError(t, mock.ExpectationsWereMet())
}
