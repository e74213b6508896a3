package service

import (
	"context"
	"testing"

	"codegrade/internal/common"
	"codegrade/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProblemRequest() ProblemRequest {
	return ProblemRequest{
		Title:       "Two Sum",
		Description: "Add two numbers.",
		Difficulty:  model.DifficultyEasy,
		Tags:        []string{"array"},
		VisibleTestCases: []model.VisibleTestCase{
			{Input: "1 2", Output: "3", Explanation: "1+2=3"},
			{Input: "2 2", Output: "4", Explanation: "2+2=4"},
		},
		HiddenTestCases: []model.TestCase{{Input: "5 5", Output: "10"}},
		StartCode: []model.StartCode{
			{Language: "javascript", InitialCode: "function solve() {}"},
		},
		ReferenceSolutions: []model.ReferenceSolution{
			{Language: "c++", CompleteCode: "int main() {}"},
			{Language: "java", CompleteCode: "class Main {}"},
		},
	}
}

func TestCreateProblemRunsReferenceSolutions(t *testing.T) {
	repo := newFakeProblemRepo()
	exec := newFakeExecutor(allMatch)
	svc := NewProblemService(repo, exec, nil)

	p, err := svc.Create(context.Background(), "admin-1", validProblemRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "two-sum", p.Slug)
	assert.Equal(t, "admin-1", p.CreatedByID)

	stored, err := repo.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Len(t, stored.HiddenTestCases, 1)

	// one batch per reference solution, one item per visible case
	require.Len(t, exec.batches, 2)
	assert.Len(t, exec.batches[0], 2)
	assert.Equal(t, 54, exec.batches[0][0].LanguageID)
	assert.Equal(t, 62, exec.batches[1][0].LanguageID)
	assert.Equal(t, "3", exec.batches[0][0].ExpectedOutput)
}

func TestCreateProblemRejectedReferenceStoresNothing(t *testing.T) {
	repo := newFakeProblemRepo()
	exec := newFakeExecutor(func(it model.BatchItem) model.ExecutionResult {
		if it.LanguageID == 62 && it.Stdin == "2 2" {
			return model.ExecutionResult{StatusID: 4, Status: model.ExecMismatched}
		}
		return allMatch(it)
	})
	svc := NewProblemService(repo, exec, nil)

	_, err := svc.Create(context.Background(), "admin-1", validProblemRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrReferenceRejected)
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Contains(t, err.Error(), "java")
	assert.Contains(t, err.Error(), "visible test case 2")

	assert.Empty(t, repo.problems)
}

func TestCreateProblemValidation(t *testing.T) {
	cases := map[string]func(*ProblemRequest){
		"no hidden cases":     func(r *ProblemRequest) { r.HiddenTestCases = nil },
		"no reference":        func(r *ProblemRequest) { r.ReferenceSolutions = nil },
		"bad difficulty":      func(r *ProblemRequest) { r.Difficulty = "insane" },
		"unknown tag":         func(r *ProblemRequest) { r.Tags = []string{"array", "poetry"} },
		"missing explanation": func(r *ProblemRequest) { r.VisibleTestCases[0].Explanation = "" },
		"short title":         func(r *ProblemRequest) { r.Title = "ab" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			exec := newFakeExecutor(allMatch)
			svc := NewProblemService(newFakeProblemRepo(), exec, nil)
			req := validProblemRequest()
			mutate(&req)

			_, err := svc.Create(context.Background(), "admin-1", req)
			assert.ErrorIs(t, err, common.ErrValidation)
			assert.Zero(t, exec.calls())
		})
	}
}

func TestCreateProblemUnsupportedLanguages(t *testing.T) {
	exec := newFakeExecutor(allMatch)
	svc := NewProblemService(newFakeProblemRepo(), exec, nil)

	req := validProblemRequest()
	req.ReferenceSolutions = []model.ReferenceSolution{{Language: "ruby", CompleteCode: "puts 1"}}
	_, err := svc.Create(context.Background(), "admin-1", req)
	assert.ErrorIs(t, err, common.ErrUnsupportedLanguage)

	req = validProblemRequest()
	req.StartCode = []model.StartCode{{Language: "cobol", InitialCode: "x"}}
	_, err = svc.Create(context.Background(), "admin-1", req)
	assert.ErrorIs(t, err, common.ErrUnsupportedLanguage)
	assert.Zero(t, exec.calls())
}

func TestCreateProblemUpstreamFailure(t *testing.T) {
	repo := newFakeProblemRepo()
	exec := newFakeExecutor(allMatch)
	exec.submitErr = common.ErrUpstreamUnavailable
	svc := NewProblemService(repo, exec, nil)

	_, err := svc.Create(context.Background(), "admin-1", validProblemRequest())
	assert.ErrorIs(t, err, common.ErrUpstreamUnavailable)
	assert.Empty(t, repo.problems)
}

func TestUpdateProblem(t *testing.T) {
	repo := newFakeProblemRepo(&model.Problem{ID: "p1", Title: "Old", Slug: "old", CreatedByID: "admin-1"})
	svc := NewProblemService(repo, newFakeExecutor(allMatch), nil)

	_, err := svc.Update(context.Background(), "missing", validProblemRequest())
	assert.ErrorIs(t, err, common.ErrNotFound)

	p, err := svc.Update(context.Background(), "p1", validProblemRequest())
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)

	stored, _ := repo.FindByID(context.Background(), "p1")
	assert.Equal(t, "Two Sum", stored.Title)
	assert.Equal(t, "two-sum", stored.Slug)
}

func TestUpdateProblemRejectedKeepsOldVersion(t *testing.T) {
	repo := newFakeProblemRepo(&model.Problem{ID: "p1", Title: "Old", Slug: "old"})
	exec := newFakeExecutor(func(model.BatchItem) model.ExecutionResult {
		return model.ExecutionResult{StatusID: 11, Status: model.ExecRuntimeFault}
	})
	svc := NewProblemService(repo, exec, nil)

	_, err := svc.Update(context.Background(), "p1", validProblemRequest())
	assert.ErrorIs(t, err, common.ErrReferenceRejected)

	stored, _ := repo.FindByID(context.Background(), "p1")
	assert.Equal(t, "Old", stored.Title)
}

func TestGetProblemHidesAdminFields(t *testing.T) {
	repo := newFakeProblemRepo(&model.Problem{
		ID:                 "p1",
		HiddenTestCases:    []model.TestCase{{Input: "1", Output: "1"}},
		ReferenceSolutions: []model.ReferenceSolution{{Language: "java", CompleteCode: "x"}},
	})
	svc := NewProblemService(repo, newFakeExecutor(allMatch), nil)

	p, err := svc.Get(context.Background(), "p1", model.RoleUser)
	require.NoError(t, err)
	assert.Nil(t, p.HiddenTestCases)
	assert.Nil(t, p.ReferenceSolutions)

	p, err = svc.Get(context.Background(), "p1", model.RoleAdmin)
	require.NoError(t, err)
	assert.Len(t, p.HiddenTestCases, 1)
	assert.Len(t, p.ReferenceSolutions, 1)

	_, err = svc.Get(context.Background(), "nope", model.RoleUser)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDeleteProblem(t *testing.T) {
	repo := newFakeProblemRepo(&model.Problem{ID: "p1"})
	svc := NewProblemService(repo, newFakeExecutor(allMatch), nil)

	require.NoError(t, svc.Delete(context.Background(), "p1"))
	assert.ErrorIs(t, svc.Delete(context.Background(), "p1"), common.ErrNotFound)
}

func TestListProblemsPaging(t *testing.T) {
	var ps []*model.Problem
	for _, id := range []string{"a", "b", "c"} {
		ps = append(ps, &model.Problem{ID: id, Difficulty: model.DifficultyEasy})
	}
	svc := NewProblemService(newFakeProblemRepo(ps...), newFakeExecutor(allMatch), nil)

	page, err := svc.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.Limit)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Problems, 3)

	page, err = svc.List(context.Background(), ListFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Problems, 1)
	assert.Equal(t, "c", page.Problems[0].ID)

	page, err = svc.List(context.Background(), ListFilter{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, 100, page.Limit)

	_, err = svc.List(context.Background(), ListFilter{Difficulty: "extreme"})
	assert.ErrorIs(t, err, common.ErrValidation)
}
