package model

import (
	"time"
)

type ProblemDifficulty string

const (
	DifficultyEasy   ProblemDifficulty = "easy"
	DifficultyMedium ProblemDifficulty = "medium"
	DifficultyHard   ProblemDifficulty = "hard"
)

// Tags a problem may carry.
var ProblemTags = []string{
	"array", "string", "linked list", "tree", "graph",
	"dynamic programming", "greedy", "backtracking",
}

type Problem struct {
	ID                 string              `json:"id"`
	Title              string              `json:"title"`
	Slug               string              `json:"slug"`
	Description        string              `json:"description"`
	Difficulty         ProblemDifficulty   `json:"difficulty"`
	Tags               []string            `json:"tags"`
	VisibleTestCases   []VisibleTestCase   `json:"visible_test_cases"`
	HiddenTestCases    []TestCase          `json:"hidden_test_cases,omitempty"` // admin only view
	StartCode          []StartCode         `json:"start_code"`
	ReferenceSolutions []ReferenceSolution `json:"reference_solutions,omitempty"` // admin only view
	CreatedByID        string              `json:"created_by_id"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// ProblemSummary is the list/solved-set projection.
type ProblemSummary struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	Slug       string            `json:"slug"`
	Difficulty ProblemDifficulty `json:"difficulty"`
	Tags       []string          `json:"tags"`
}

type VisibleTestCase struct {
	Input       string `json:"input" validate:"required"`
	Output      string `json:"output" validate:"required"`
	Explanation string `json:"explanation" validate:"required"`
}

type TestCase struct { // Hidden test cases
	Input  string `json:"input" validate:"required"`
	Output string `json:"output" validate:"required"`
}

type StartCode struct {
	Language    string `json:"language" validate:"required"`
	InitialCode string `json:"initial_code" validate:"required"`
}

type ReferenceSolution struct {
	Language     string `json:"language" validate:"required"`
	CompleteCode string `json:"complete_code" validate:"required"`
}

// PublicView strips what only admins may read.
func (p Problem) PublicView() Problem {
	p.HiddenTestCases = nil
	p.ReferenceSolutions = nil
	return p
}

func (p Problem) Summary() ProblemSummary {
	return ProblemSummary{ID: p.ID, Title: p.Title, Slug: p.Slug, Difficulty: p.Difficulty, Tags: p.Tags}
}
