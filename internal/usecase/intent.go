package usecase

import "strings"

// Intent is the enumerated outcome of classifying a pharmacist's chat
// message.
type Intent string

const (
	// IntentEditRequest means the message asks for a change to the current
	// document.
	IntentEditRequest Intent = "edit_request"
	// IntentQuestion means the message is a question or discussion turn.
	IntentQuestion Intent = "question"
)

// editKeywords are matched as whole words. Substring heuristics are crude;
// keeping them behind this one pure function lets a real classifier replace
// them without touching callers.
var editKeywords = map[string]struct{}{
	"add":         {},
	"remove":      {},
	"delete":      {},
	"change":      {},
	"update":      {},
	"edit":        {},
	"revise":      {},
	"rewrite":     {},
	"reword":      {},
	"replace":     {},
	"shorten":     {},
	"expand":      {},
	"insert":      {},
	"restructure": {},
}

// ClassifyIntent decides whether a chat message is an edit request against
// the session document or an ordinary question. Pure; no I/O.
func ClassifyIntent(text string) Intent {
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:'\"()")
		if _, ok := editKeywords[word]; ok {
			return IntentEditRequest
		}
	}
	return IntentQuestion
}
