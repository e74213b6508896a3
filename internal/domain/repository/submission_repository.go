package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"codegrade/internal/common"
	"codegrade/internal/domain/model"
)

type SubmissionRepository interface {
	Create(ctx context.Context, sub *model.Submission) error
	// Finalize moves a pending submission to the verdict's terminal state.
	// It fails with ErrConflict when the submission is no longer pending.
	Finalize(ctx context.Context, submissionID string, v model.Verdict) (*model.Submission, error)
	FindByID(ctx context.Context, id string) (*model.Submission, error)
	ListByUserAndProblem(ctx context.Context, userID, problemID string) ([]model.Submission, error)
	// MarkStalePending finalizes submissions pending since before olderThan.
	MarkStalePending(ctx context.Context, olderThan time.Time, message string) (int64, error)
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

const submissionColumns = `id, user_id, problem_id, code, language, status, test_cases_passed,
       test_cases_total, runtime, memory, error_message, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSubmission(row rowScanner) (*model.Submission, error) {
	s := &model.Submission{}
	var errMsg sql.NullString
	err := row.Scan(
		&s.ID, &s.UserID, &s.ProblemID, &s.Code, &s.Language, &s.Status, &s.TestCasesPassed,
		&s.TestCasesTotal, &s.Runtime, &s.Memory, &errMsg, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if errMsg.Valid {
		s.ErrorMessage = &errMsg.String
	}
	return s, nil
}

func (r *pgSubmissionRepository) Create(ctx context.Context, s *model.Submission) error {
	query := `INSERT INTO submissions (id, user_id, problem_id, code, language, status, test_cases_passed, test_cases_total)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		s.ID, s.UserID, s.ProblemID, s.Code, s.Language, s.Status, s.TestCasesPassed, s.TestCasesTotal,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.Create: %w", err)
	}
	return nil
}

func (r *pgSubmissionRepository) Finalize(ctx context.Context, id string, v model.Verdict) (*model.Submission, error) {
	query := `UPDATE submissions SET
                status = $1, test_cases_passed = $2, test_cases_total = $3, runtime = $4,
                memory = $5, error_message = $6, updated_at = CURRENT_TIMESTAMP
              WHERE id = $7 AND status = 'pending'
              RETURNING ` + submissionColumns

	var errMsg sql.NullString
	if v.ErrorMessage != nil {
		errMsg = sql.NullString{String: *v.ErrorMessage, Valid: true}
	}
	s, err := scanSubmission(r.db.QueryRowContext(ctx, query,
		v.Status, v.Passed, v.Total, v.Runtime, v.Memory, errMsg, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("submission %s is not pending: %w", id, common.ErrConflict)
		}
		return nil, fmt.Errorf("pgSubmissionRepository.Finalize: %w", err)
	}
	return s, nil
}

func (r *pgSubmissionRepository) FindByID(ctx context.Context, id string) (*model.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`
	s, err := scanSubmission(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSubmissionRepository.FindByID: %w", err)
	}
	return s, nil
}

func (r *pgSubmissionRepository) ListByUserAndProblem(ctx context.Context, userID, problemID string) ([]model.Submission, error) {
	query := `SELECT ` + submissionColumns + `
              FROM submissions
              WHERE user_id = $1 AND problem_id = $2
              ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID, problemID)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListByUserAndProblem query: %w", err)
	}
	defer rows.Close()

	subs := []model.Submission{}
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.ListByUserAndProblem scan: %w", err)
		}
		subs = append(subs, *s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListByUserAndProblem rows.Err: %w", err)
	}
	return subs, nil
}

func (r *pgSubmissionRepository) MarkStalePending(ctx context.Context, olderThan time.Time, message string) (int64, error) {
	query := `UPDATE submissions SET status = $1, error_message = $2, updated_at = CURRENT_TIMESTAMP
              WHERE status = 'pending' AND created_at < $3`
	res, err := r.db.ExecContext(ctx, query, model.StatusInternalError, message, olderThan)
	if err != nil {
		return 0, fmt.Errorf("pgSubmissionRepository.MarkStalePending: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pgSubmissionRepository.MarkStalePending rows: %w", err)
	}
	return n, nil
}
