package service

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"codegrade/internal/common"
	"codegrade/internal/domain/model"
	"codegrade/internal/domain/repository"
)

type fakeProblemRepo struct {
	mu       sync.Mutex
	problems map[string]*model.Problem
}

func newFakeProblemRepo(ps ...*model.Problem) *fakeProblemRepo {
	r := &fakeProblemRepo{problems: map[string]*model.Problem{}}
	for _, p := range ps {
		r.problems[p.ID] = p
	}
	return r
}

func (r *fakeProblemRepo) Create(_ context.Context, p *model.Problem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.problems {
		if existing.Slug == p.Slug {
			return common.ErrConflict
		}
	}
	cp := *p
	r.problems[p.ID] = &cp
	return nil
}

func (r *fakeProblemRepo) Update(_ context.Context, p *model.Problem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.problems[p.ID]; !ok {
		return common.ErrNotFound
	}
	cp := *p
	r.problems[p.ID] = &cp
	return nil
}

func (r *fakeProblemRepo) FindByID(_ context.Context, id string) (*model.Problem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.problems[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProblemRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.problems[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.problems, id)
	return nil
}

func (r *fakeProblemRepo) List(_ context.Context, f repository.ProblemFilter) ([]model.ProblemSummary, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []model.ProblemSummary
	for _, p := range r.problems {
		if f.Difficulty != "" && p.Difficulty != f.Difficulty {
			continue
		}
		all = append(all, p.Summary())
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := len(all)
	if f.Offset >= total {
		return []model.ProblemSummary{}, total, nil
	}
	end := f.Offset + f.Limit
	if end > total {
		end = total
	}
	return all[f.Offset:end], total, nil
}

type fakeSubmissionRepo struct {
	mu          sync.Mutex
	submissions map[string]*model.Submission
	created     int
	finalizeErr error
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{submissions: map[string]*model.Submission{}}
}

func (r *fakeSubmissionRepo) Create(_ context.Context, s *model.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	cp := *s
	r.submissions[s.ID] = &cp
	r.created++
	return nil
}

func (r *fakeSubmissionRepo) Finalize(_ context.Context, id string, v model.Verdict) (*model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalizeErr != nil {
		return nil, r.finalizeErr
	}
	s, ok := r.submissions[id]
	if !ok || s.Status != model.StatusPending {
		return nil, common.ErrConflict
	}
	s.Status = v.Status
	s.TestCasesPassed = v.Passed
	s.TestCasesTotal = v.Total
	s.Runtime = v.Runtime
	s.Memory = v.Memory
	s.ErrorMessage = v.ErrorMessage
	cp := *s
	return &cp, nil
}

func (r *fakeSubmissionRepo) FindByID(_ context.Context, id string) (*model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.submissions[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSubmissionRepo) ListByUserAndProblem(_ context.Context, userID, problemID string) ([]model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Submission{}
	for _, s := range r.submissions {
		if s.UserID == userID && s.ProblemID == problemID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeSubmissionRepo) MarkStalePending(_ context.Context, olderThan time.Time, message string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.submissions {
		if s.Status == model.StatusPending && s.CreatedAt.Before(olderThan) {
			s.Status = model.StatusInternalError
			msg := message
			s.ErrorMessage = &msg
			n++
		}
	}
	return n, nil
}

func (r *fakeSubmissionRepo) only() *model.Submission {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.submissions {
		cp := *s
		return &cp
	}
	return nil
}

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]*model.User
	solved map[string][]string
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*model.User{}, solved: map[string][]string{}}
}

func (r *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return common.ErrConflict
		}
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.users, id)
	delete(r.solved, id)
	return nil
}

func (r *fakeUserRepo) AddSolvedProblem(_ context.Context, userID, problemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.solved[userID] {
		if id == problemID {
			return nil
		}
	}
	r.solved[userID] = append(r.solved[userID], problemID)
	return nil
}

func (r *fakeUserRepo) SolvedProblemIDs(_ context.Context, userID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.solved[userID]...), nil
}

func (r *fakeUserRepo) SolvedProblems(_ context.Context, userID string) ([]model.ProblemSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.ProblemSummary{}
	for _, id := range r.solved[userID] {
		out = append(out, model.ProblemSummary{ID: id})
	}
	return out, nil
}

func (r *fakeUserRepo) Leaderboard(_ context.Context, limit int) ([]model.LeaderboardEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.LeaderboardEntry
	for id, solved := range r.solved {
		out = append(out, model.LeaderboardEntry{UserID: id, ProblemsSolved: len(solved)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProblemsSolved > out[j].ProblemsSolved })
	if len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

// fakeExecutor judges each item with judge, or fails with submitErr/awaitErr.
// onAwait runs while the batch is "executing".
type fakeExecutor struct {
	mu        sync.Mutex
	judge     func(model.BatchItem) model.ExecutionResult
	submitErr error
	awaitErr  error
	onAwait   func()
	batches   [][]model.BatchItem
	pending   map[string]model.BatchItem
}

func newFakeExecutor(judge func(model.BatchItem) model.ExecutionResult) *fakeExecutor {
	return &fakeExecutor{judge: judge, pending: map[string]model.BatchItem{}}
}

// allMatch accepts every item.
func allMatch(item model.BatchItem) model.ExecutionResult {
	return model.ExecutionResult{StatusID: 3, Status: model.ExecMatched, Stdout: item.ExpectedOutput, Time: 0.1, Memory: 1024}
}

func (f *fakeExecutor) SubmitBatch(_ context.Context, items []model.BatchItem) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.batches = append(f.batches, items)
	tokens := make([]string, len(items))
	for i, it := range items {
		tokens[i] = strconv.Itoa(len(f.pending))
		f.pending[tokens[i]] = it
	}
	return tokens, nil
}

func (f *fakeExecutor) AwaitResults(_ context.Context, tokens []string) ([]model.ExecutionResult, error) {
	if f.onAwait != nil {
		f.onAwait()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.awaitErr != nil {
		return nil, f.awaitErr
	}
	out := make([]model.ExecutionResult, len(tokens))
	for i, tok := range tokens {
		out[i] = f.judge(f.pending[tok])
		out[i].Token = tok
	}
	return out, nil
}

func (f *fakeExecutor) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}
