package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"codegrade/internal/common"
	"codegrade/internal/domain/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProblem() *model.Problem {
	return &model.Problem{
		ID:          "p1",
		Title:       "Two Sum",
		Slug:        "two-sum",
		Description: "add",
		Difficulty:  model.DifficultyEasy,
		Tags:        []string{"array"},
		VisibleTestCases: []model.VisibleTestCase{
			{Input: "1 2", Output: "3", Explanation: "1+2"},
		},
		HiddenTestCases: []model.TestCase{{Input: "2 2", Output: "4"}},
		CreatedByID:     "admin",
	}
}

func TestProblemCreateEncodesDocuments(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgProblemRepository(db)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO problems`).
		WithArgs("p1", "Two Sum", "two-sum", "add", model.DifficultyEasy,
			`["array"]`,
			`[{"input":"1 2","output":"3","explanation":"1+2"}]`,
			`[{"input":"2 2","output":"4"}]`,
			`[]`, `[]`, "admin").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	p := sampleProblem()
	require.NoError(t, repo.Create(context.Background(), p))
	assert.Equal(t, now, p.CreatedAt)
}

func TestProblemCreateDuplicateSlug(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgProblemRepository(db)

	mock.ExpectQuery(`INSERT INTO problems`).WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), sampleProblem())
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestProblemFindByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgProblemRepository(db)
	now := time.Now()

	mock.ExpectQuery(`SELECT id, title, slug`).WithArgs("p1").WillReturnRows(
		sqlmock.NewRows([]string{"id", "title", "slug", "description", "difficulty", "tags",
			"visible_test_cases", "hidden_test_cases", "start_code", "reference_solutions",
			"created_by", "created_at", "updated_at"}).
			AddRow("p1", "Two Sum", "two-sum", "add", "easy", []byte(`["array","greedy"]`),
				[]byte(`[{"input":"1 2","output":"3","explanation":"e"}]`),
				[]byte(`[{"input":"2 2","output":"4"}]`),
				[]byte(`[{"language":"java","initial_code":"class Main {}"}]`),
				[]byte(`[{"language":"c++","complete_code":"int main(){}"}]`),
				"admin", now, now))

	p, err := repo.FindByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"array", "greedy"}, p.Tags)
	require.Len(t, p.HiddenTestCases, 1)
	assert.Equal(t, "4", p.HiddenTestCases[0].Output)
	assert.Equal(t, "java", p.StartCode[0].Language)
	assert.Equal(t, "c++", p.ReferenceSolutions[0].Language)
}

func TestProblemFindByIDMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgProblemRepository(db)

	mock.ExpectQuery(`SELECT id, title, slug`).WithArgs("nope").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestProblemUpdateMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgProblemRepository(db)

	mock.ExpectQuery(`UPDATE problems SET`).WillReturnError(sql.ErrNoRows)

	err := repo.Update(context.Background(), sampleProblem())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestProblemDelete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgProblemRepository(db)

	mock.ExpectExec(`DELETE FROM problems`).WithArgs("p1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM problems`).WithArgs("p2").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "p1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "p2"), common.ErrNotFound)
}

func TestProblemListFilters(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgProblemRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM problems p WHERE p.difficulty = \$1 AND p.tags \?\| \$2`).
		WithArgs(model.DifficultyMedium, []string{"tree", "graph"}).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))
	mock.ExpectQuery(`SELECT p.id, p.title, p.slug, p.difficulty, p.tags FROM problems p WHERE .* LIMIT \$3 OFFSET \$4`).
		WithArgs(model.DifficultyMedium, []string{"tree", "graph"}, 10, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "slug", "difficulty", "tags"}).
			AddRow("p1", "Paths", "paths", "medium", []byte(`["graph"]`)))

	got, total, err := repo.List(context.Background(), ProblemFilter{
		Limit: 10, Offset: 10, Difficulty: model.DifficultyMedium, Tags: []string{"tree", "graph"},
	})
	require.NoError(t, err)
	assert.Equal(t, 11, total)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"graph"}, got[0].Tags)
}

func TestProblemListUnfiltered(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgProblemRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM problems p$`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`FROM problems p ORDER BY p.created_at DESC LIMIT \$1 OFFSET \$2`).
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "slug", "difficulty", "tags"}))

	got, total, err := repo.List(context.Background(), ProblemFilter{Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
