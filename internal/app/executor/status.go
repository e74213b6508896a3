package executor

import (
	"fmt"
	"strings"

	"codegrade/internal/common"
	"codegrade/internal/domain/model"
)

// Judge0 status ids 1 (In Queue) and 2 (Processing) are the only
// non-terminal ones.
const lastPendingStatusID = 2

var statusTable = map[int]model.ExecutionStatus{
	3: model.ExecMatched,
	4: model.ExecMismatched,
	5: model.ExecTimeLimitExceeded,
	6: model.ExecCompilationFailed,
}

func IsTerminal(statusID int) bool { return statusID > lastPendingStatusID }

// Classify maps an upstream status id to exactly one execution status.
// Unknown terminal ids (7..14 and anything added later) are runtime faults.
func Classify(statusID int) model.ExecutionStatus {
	if s, ok := statusTable[statusID]; ok {
		return s
	}
	return model.ExecRuntimeFault
}

var languages = []model.Language{
	{Slug: "c++", Name: "C++ (GCC 9.2.0)", ExternalID: 54},
	{Slug: "java", Name: "Java (OpenJDK 13.0.1)", ExternalID: 62},
	{Slug: "javascript", Name: "JavaScript (Node.js 12.14.0)", ExternalID: 63},
}

// Languages returns a copy of the judgeable language table.
func Languages() []model.Language {
	out := make([]model.Language, len(languages))
	copy(out, languages)
	return out
}

// LanguageID resolves a language slug (case-insensitive) to its upstream id.
func LanguageID(lang string) (int, error) {
	key := strings.ToLower(strings.TrimSpace(lang))
	for _, l := range languages {
		if l.Slug == key {
			return l.ExternalID, nil
		}
	}
	return 0, fmt.Errorf("language %q: %w", lang, common.ErrUnsupportedLanguage)
}
