package model

// ExecutionStatus is the internal classification of one judged test case.
type ExecutionStatus string

const (
	ExecMatched           ExecutionStatus = "matched"
	ExecMismatched        ExecutionStatus = "mismatched"
	ExecTimeLimitExceeded ExecutionStatus = "time_limit_exceeded"
	ExecCompilationFailed ExecutionStatus = "compilation_failed"
	ExecRuntimeFault      ExecutionStatus = "runtime_fault"
)

// BatchItem is one (code, stdin, expected) triple sent to the execution service.
type BatchItem struct {
	SourceCode     string
	LanguageID     int
	Stdin          string
	ExpectedOutput string
}

// ExecutionResult is the terminal outcome of one BatchItem.
type ExecutionResult struct {
	Token         string
	StatusID      int
	Status        ExecutionStatus
	Stdout        string
	Stderr        string
	CompileOutput string
	Time          float64 // seconds
	Memory        int     // KB
}
