package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"codegrade/internal/common"
	"codegrade/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	// Delete removes the user; submissions and solved entries go with it.
	Delete(ctx context.Context, id string) error

	// AddSolvedProblem is idempotent.
	AddSolvedProblem(ctx context.Context, userID, problemID string) error
	SolvedProblemIDs(ctx context.Context, userID string) ([]string, error)
	SolvedProblems(ctx context.Context, userID string) ([]model.ProblemSummary, error)
	Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
}

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) UserRepository {
	return &pgUserRepository{db: db}
}

func (r *pgUserRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, first_name, last_name, username, email, hashed_password, role)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.FirstName, user.LastName, user.Username, user.Email, user.HashedPassword, user.Role,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint violation
			return fmt.Errorf("user with given email already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgUserRepository.Create: %w", err)
	}
	return nil
}

const userColumns = `id, first_name, last_name, username, email, hashed_password, role, created_at, updated_at`

func (r *pgUserRepository) findOne(ctx context.Context, op, where string, arg interface{}) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg).Scan(
		&user.ID, &user.FirstName, &user.LastName, &user.Username, &user.Email, &user.HashedPassword,
		&user.Role, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.%s: %w", op, err)
	}
	return user, nil
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, "FindByEmail", "email = $1", email)
}

func (r *pgUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, "FindByID", "id = $1", id)
}

func (r *pgUserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgUserRepository.Delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgUserRepository.Delete rows: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgUserRepository) AddSolvedProblem(ctx context.Context, userID, problemID string) error {
	query := `INSERT INTO user_solved_problems (user_id, problem_id) VALUES ($1, $2)
	          ON CONFLICT (user_id, problem_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, userID, problemID); err != nil {
		return fmt.Errorf("pgUserRepository.AddSolvedProblem: %w", err)
	}
	return nil
}

func (r *pgUserRepository) SolvedProblemIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT problem_id FROM user_solved_problems WHERE user_id = $1 ORDER BY solved_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("pgUserRepository.SolvedProblemIDs query: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("pgUserRepository.SolvedProblemIDs scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgUserRepository.SolvedProblemIDs rows.Err: %w", err)
	}
	return ids, nil
}

func (r *pgUserRepository) SolvedProblems(ctx context.Context, userID string) ([]model.ProblemSummary, error) {
	query := `SELECT p.id, p.title, p.slug, p.difficulty, p.tags
              FROM user_solved_problems usp
              JOIN problems p ON p.id = usp.problem_id
              WHERE usp.user_id = $1
              ORDER BY usp.solved_at`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgUserRepository.SolvedProblems query: %w", err)
	}
	defer rows.Close()

	summaries, err := scanSummaries(rows)
	if err != nil {
		return nil, fmt.Errorf("pgUserRepository.SolvedProblems: %w", err)
	}
	return summaries, nil
}

func (r *pgUserRepository) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	query := `SELECT u.id, u.username, COUNT(usp.problem_id) AS solved
              FROM users u
              JOIN user_solved_problems usp ON usp.user_id = u.id
              GROUP BY u.id, u.username
              ORDER BY solved DESC, MIN(usp.solved_at) ASC
              LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("pgUserRepository.Leaderboard query: %w", err)
	}
	defer rows.Close()

	entries := []model.LeaderboardEntry{}
	for rows.Next() {
		e := model.LeaderboardEntry{Rank: len(entries) + 1}
		if err := rows.Scan(&e.UserID, &e.Username, &e.ProblemsSolved); err != nil {
			return nil, fmt.Errorf("pgUserRepository.Leaderboard scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgUserRepository.Leaderboard rows.Err: %w", err)
	}
	return entries, nil
}
