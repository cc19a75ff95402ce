// Package docgen holds the clinical document template and the structural
// validation applied to every generated shortage-response document. It is
// shared by the worker (initial generation) and the chat use case (edits).
package docgen

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DocumentTitle is the first-line heading every generated document must carry.
// Validation keys on it.
const DocumentTitle = "Drug Shortage Response Plan"

const minHeaders = 3

// SystemPrompt frames every document-generation call.
const SystemPrompt = `You are a hospital pharmacy assistant that drafts drug-shortage response documents. Write complete, clinically conservative content. Never emit placeholder text such as "[insert here]" or "TBD".`

// ChatSystemPrompt frames conversational calls about clinical alternatives.
const ChatSystemPrompt = `You are a hospital pharmacy assistant helping a pharmacist reason about drug shortages and clinical alternatives. Be concise and clinically conservative, and flag uncertainty explicitly.`

// BuildDocumentPrompt renders the fixed clinical template for one drug.
// drugData, when present, is passed through verbatim as structured context.
func BuildDocumentPrompt(drugName string, drugData json.RawMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Draft a shortage-response document for the drug %q.\n\n", drugName)
	b.WriteString("The document must begin with the exact heading \"# " + DocumentTitle + "\" and contain these numbered sections, each as a markdown header:\n\n")
	b.WriteString("## 1. Shortage Summary\n")
	b.WriteString("Current supply status, anticipated duration, and affected formulations.\n\n")
	b.WriteString("## 2. Therapeutic Alternatives\n")
	b.WriteString("Evidence-based alternatives with dosing conversions and key cautions.\n\n")
	b.WriteString("## 3. Patient Prioritization\n")
	b.WriteString("Which patient populations should retain remaining stock and why.\n\n")
	b.WriteString("## 4. Operational Plan\n")
	b.WriteString("Ordering, substitution protocol, EHR alerts, and staff communication.\n\n")
	b.WriteString("## 5. Monitoring & Reassessment\n")
	b.WriteString("Follow-up cadence and criteria for standing the response down.\n\n")
	b.WriteString("Every section must be fully written out. Do not use placeholder text anywhere.\n")
	if len(drugData) > 0 {
		b.WriteString("\nStructured shortage data for context:\n```json\n")
		b.Write(drugData)
		b.WriteString("\n```\n")
	}
	return b.String()
}

// BuildCorrectivePrompt is the one follow-up issued when the first completion
// came back truncated or malformed.
func BuildCorrectivePrompt(drugName string) string {
	return fmt.Sprintf(
		"Your previous answer was incomplete. Regenerate the ENTIRE shortage-response document for %q from the beginning. "+
			"It must start with \"# %s\", include all five numbered sections as markdown headers, and end with the Monitoring & Reassessment section fully written out.",
		drugName, DocumentTitle)
}

// BuildEditPrompt asks for a full revision of an existing document under a
// pharmacist's instruction.
func BuildEditPrompt(current, instruction string) string {
	var b strings.Builder
	b.WriteString("Revise the shortage-response document below according to the instruction. ")
	b.WriteString("Return the COMPLETE revised document, keeping the \"# " + DocumentTitle + "\" heading and all section headers.\n\n")
	fmt.Fprintf(&b, "Instruction: %s\n\n", instruction)
	b.WriteString("Current document:\n\n")
	b.WriteString(current)
	return b.String()
}

// ValidateDocument checks structural requirements: non-empty, the expected
// title, and a minimum number of markdown headers.
func ValidateDocument(doc string) error {
	trimmed := strings.TrimSpace(doc)
	if trimmed == "" {
		return fmt.Errorf("empty document")
	}
	if !strings.Contains(trimmed, DocumentTitle) {
		return fmt.Errorf("missing title %q", DocumentTitle)
	}
	if countHeaders(trimmed) < minHeaders {
		return fmt.Errorf("fewer than %d markdown headers", minHeaders)
	}
	return nil
}

// LooksTruncated reports whether an invalid document appears cut off
// mid-generation, in which case one corrective retry is worthwhile.
func LooksTruncated(doc string) bool {
	trimmed := strings.TrimSpace(doc)
	if trimmed == "" {
		return false
	}
	// Started in the right shape but ran out before the header quota.
	if strings.Contains(trimmed, DocumentTitle) && countHeaders(trimmed) < minHeaders {
		return true
	}
	// Ends mid-sentence.
	switch trimmed[len(trimmed)-1] {
	case '.', '!', '?', ':', '`':
		return false
	}
	return true
}

func countHeaders(doc string) int {
	n := 0
	for _, line := range strings.Split(doc, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			n++
		}
	}
	return n
}
