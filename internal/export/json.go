package export

import "encoding/json"

// renderJSON marshals the whole result. encoding/json orders struct fields
// by declaration and map keys by sorted string form, so the bytes are stable
// for a given result.
func renderJSON(result ResearchResult) ([]byte, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, &RenderError{Format: string(FormatJSON), Reason: err.Error()}
	}
	return append(data, '\n'), nil
}
