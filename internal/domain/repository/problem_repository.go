package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"codegrade/internal/common"
	"codegrade/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

// ProblemFilter narrows List. Tags match when a problem carries any of them.
type ProblemFilter struct {
	Limit      int
	Offset     int
	Difficulty model.ProblemDifficulty
	Tags       []string
}

type ProblemRepository interface {
	Create(ctx context.Context, problem *model.Problem) error
	Update(ctx context.Context, problem *model.Problem) error
	FindByID(ctx context.Context, id string) (*model.Problem, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ProblemFilter) ([]model.ProblemSummary, int, error)
}

type pgProblemRepository struct {
	db *sql.DB
}

func NewPgProblemRepository(db *sql.DB) ProblemRepository {
	return &pgProblemRepository{db: db}
}

// problemDocs holds the JSONB encoded parts of a problem row.
type problemDocs struct {
	tags, visible, hidden, startCode, references string
}

func encodeProblemDocs(p *model.Problem) (problemDocs, error) {
	var d problemDocs
	var err error
	for _, part := range []struct {
		dst *string
		v   interface{}
	}{
		{&d.tags, p.Tags},
		{&d.visible, p.VisibleTestCases},
		{&d.hidden, p.HiddenTestCases},
		{&d.startCode, p.StartCode},
		{&d.references, p.ReferenceSolutions},
	} {
		if *part.dst, err = jsonArray(part.v); err != nil {
			return d, err
		}
	}
	return d, nil
}

// jsonArray encodes a slice, storing nil as [] rather than null.
func jsonArray(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return "[]", nil
	}
	return string(b), nil
}

func (r *pgProblemRepository) Create(ctx context.Context, p *model.Problem) error {
	docs, err := encodeProblemDocs(p)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.Create encode: %w", err)
	}

	query := `INSERT INTO problems (id, title, slug, description, difficulty, tags, visible_test_cases,
	              hidden_test_cases, start_code, reference_solutions, created_by)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	          RETURNING created_at, updated_at`
	err = r.db.QueryRowContext(ctx, query,
		p.ID, p.Title, p.Slug, p.Description, p.Difficulty,
		docs.tags, docs.visible, docs.hidden, docs.startCode, docs.references, p.CreatedByID,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint for slug
			return fmt.Errorf("problem with this title already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgProblemRepository.Create: %w", err)
	}
	return nil
}

func (r *pgProblemRepository) Update(ctx context.Context, p *model.Problem) error {
	docs, err := encodeProblemDocs(p)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.Update encode: %w", err)
	}

	query := `UPDATE problems SET
                title = $1, slug = $2, description = $3, difficulty = $4, tags = $5,
                visible_test_cases = $6, hidden_test_cases = $7, start_code = $8,
                reference_solutions = $9, updated_at = CURRENT_TIMESTAMP
              WHERE id = $10
              RETURNING created_by, created_at, updated_at`
	err = r.db.QueryRowContext(ctx, query,
		p.Title, p.Slug, p.Description, p.Difficulty, docs.tags,
		docs.visible, docs.hidden, docs.startCode, docs.references, p.ID,
	).Scan(&p.CreatedByID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("problem with this title already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgProblemRepository.Update: %w", err)
	}
	return nil
}

func (r *pgProblemRepository) FindByID(ctx context.Context, id string) (*model.Problem, error) {
	query := `
        SELECT id, title, slug, description, difficulty, tags, visible_test_cases,
               hidden_test_cases, start_code, reference_solutions, created_by,
               created_at, updated_at
        FROM problems
        WHERE id = $1`

	p := &model.Problem{}
	var tags, visible, hidden, startCode, references []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Title, &p.Slug, &p.Description, &p.Difficulty, &tags, &visible,
		&hidden, &startCode, &references, &p.CreatedByID,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProblemRepository.FindByID: %w", err)
	}

	for _, doc := range []struct {
		raw []byte
		dst interface{}
	}{
		{tags, &p.Tags},
		{visible, &p.VisibleTestCases},
		{hidden, &p.HiddenTestCases},
		{startCode, &p.StartCode},
		{references, &p.ReferenceSolutions},
	} {
		if len(doc.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(doc.raw, doc.dst); err != nil {
			return nil, fmt.Errorf("pgProblemRepository.FindByID decode: %w", err)
		}
	}
	return p, nil
}

func (r *pgProblemRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM problems WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.Delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgProblemRepository.Delete rows: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgProblemRepository) List(ctx context.Context, f ProblemFilter) ([]model.ProblemSummary, int, error) {
	var conditions []string
	var args []interface{}
	argID := 1

	if f.Difficulty != "" {
		conditions = append(conditions, fmt.Sprintf("p.difficulty = $%d", argID))
		args = append(args, f.Difficulty)
		argID++
	}
	if len(f.Tags) > 0 {
		conditions = append(conditions, fmt.Sprintf("p.tags ?| $%d", argID))
		args = append(args, f.Tags)
		argID++
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM problems p`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.List count: %w", err)
	}

	var query strings.Builder
	query.WriteString(`SELECT p.id, p.title, p.slug, p.difficulty, p.tags FROM problems p`)
	query.WriteString(where)
	query.WriteString(fmt.Sprintf(" ORDER BY p.created_at DESC LIMIT $%d OFFSET $%d", argID, argID+1))
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.List query: %w", err)
	}
	defer rows.Close()

	problems, err := scanSummaries(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.List: %w", err)
	}
	return problems, total, nil
}

// scanSummaries reads (id, title, slug, difficulty, tags) rows.
func scanSummaries(rows *sql.Rows) ([]model.ProblemSummary, error) {
	summaries := []model.ProblemSummary{}
	for rows.Next() {
		var s model.ProblemSummary
		var tags []byte
		if err := rows.Scan(&s.ID, &s.Title, &s.Slug, &s.Difficulty, &tags); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if len(tags) > 0 {
			if err := json.Unmarshal(tags, &s.Tags); err != nil {
				return nil, fmt.Errorf("decode tags: %w", err)
			}
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}
	return summaries, nil
}
