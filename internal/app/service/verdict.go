package service

import "codegrade/internal/domain/model"

var failureStatus = map[model.ExecutionStatus]model.SubmissionStatus{
	model.ExecMismatched:        model.StatusWrongAnswer,
	model.ExecTimeLimitExceeded: model.StatusTimeLimitExceeded,
	model.ExecCompilationFailed: model.StatusCompilationError,
	model.ExecRuntimeFault:      model.StatusRuntimeError,
}

// AggregateVerdict reduces per-case results to one submission verdict.
// Runtime is summed and memory is the peak, both over passing cases only.
// Every result is visited; the last failing case decides status and message.
func AggregateVerdict(results []model.ExecutionResult, totalCases int) model.Verdict {
	v := model.Verdict{Status: model.StatusAccepted, Total: totalCases}

	for _, r := range results {
		if r.Status == model.ExecMatched {
			v.Passed++
			v.Runtime += r.Time
			if r.Memory > v.Memory {
				v.Memory = r.Memory
			}
			continue
		}

		status, ok := failureStatus[r.Status]
		if !ok {
			status = model.StatusRuntimeError
		}
		v.Status = status

		msg := r.Stderr
		if msg == "" && r.Status == model.ExecCompilationFailed {
			msg = r.CompileOutput
		}
		if msg != "" {
			v.ErrorMessage = &msg
		} else {
			v.ErrorMessage = nil
		}
	}
	return v
}
