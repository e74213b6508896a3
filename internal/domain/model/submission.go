package model

import "time"

type SubmissionStatus string

const (
	StatusPending           SubmissionStatus = "pending"
	StatusAccepted          SubmissionStatus = "accepted"
	StatusWrongAnswer       SubmissionStatus = "wrong"
	StatusTimeLimitExceeded SubmissionStatus = "time_limit_exceeded"
	StatusCompilationError  SubmissionStatus = "compilation_error"
	StatusRuntimeError      SubmissionStatus = "runtime_error"
	StatusJudgeTimeout      SubmissionStatus = "judge_timeout"  // execution service never finished
	StatusInternalError     SubmissionStatus = "internal_error" // grading aborted by a fault on our side
)

func (s SubmissionStatus) IsTerminal() bool { return s != StatusPending }

type Submission struct {
	ID              string           `json:"id"`
	UserID          string           `json:"user_id"`
	ProblemID       string           `json:"problem_id"`
	Code            string           `json:"code"`
	Language        string           `json:"language"`
	Status          SubmissionStatus `json:"status"`
	TestCasesPassed int              `json:"test_cases_passed"`
	TestCasesTotal  int              `json:"test_cases_total"`
	Runtime         float64          `json:"runtime"` // seconds, summed over passing cases
	Memory          int              `json:"memory"`  // KB, peak over passing cases
	ErrorMessage    *string          `json:"error_message,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Verdict is the terminal state a pending submission is finalized with.
type Verdict struct {
	Status       SubmissionStatus
	Passed       int
	Total        int
	Runtime      float64
	Memory       int
	ErrorMessage *string
}

// RunCaseResult is one visible test case outcome of a trial run.
type RunCaseResult struct {
	Status         ExecutionStatus `json:"status"`
	StatusID       int             `json:"status_id"`
	Stdin          string          `json:"stdin"`
	ExpectedOutput string          `json:"expected_output"`
	Stdout         string          `json:"stdout"`
	Stderr         string          `json:"stderr,omitempty"`
	CompileOutput  string          `json:"compile_output,omitempty"`
	Time           float64         `json:"time"`
	Memory         int             `json:"memory"`
}
