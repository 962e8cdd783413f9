// Package parse recovers structured content from a model reply that is
// nominally JSON but may be malformed, partial, or wrapped in prose.
package parse

import (
	"encoding/json"
	"strings"

	contractx "github.com/avanse/counselor/agent/contract"
)

// Reply is the normalized content of one raw provider reply. Answer is always
// usable; everything else may be empty.
type Reply struct {
	Answer           string
	SuggestedReplies []string
	VideoLinks       []string
	Fields           contractx.LeadFields
}

// wireReply mirrors the JSON shape the system prompt asks the model for.
// Unknown keys are dropped at this boundary.
type wireReply struct {
	Answer      string   `json:"answer"`
	UserOptions []string `json:"user_options"`
	Videos      []string `json:"videos"`

	Name          string `json:"Name"`
	Mobile        string `json:"Mobile"`
	Email         string `json:"Email"`
	Country       string `json:"Country"`
	TargetDegree  string `json:"Target_Degree"`
	IntendedMajor string `json:"Intended_Major"`
	College       string `json:"College"`
	Budget        string `json:"Budget"`
	Sentiment     string `json:"Sentiment"`
	Propensity    string `json:"Propensity"`
}

// placeholders the model sometimes emits instead of omitting a key.
// Matched exactly, case-sensitive.
var placeholders = map[string]struct{}{
	"null": {}, "None": {}, "": {}, "N/A": {}, "unknown": {},
}

// Parse never fails; when no decodable JSON object is found the raw text
// itself becomes the answer and no fields are extracted.
func Parse(raw string) Reply {
	decoded, ok := decodeBraceSpan(raw)
	if !ok || strings.TrimSpace(decoded.Answer) == "" {
		out := Reply{Answer: fallbackAnswer(raw)}
		if ok {
			out.SuggestedReplies = decoded.UserOptions
			out.VideoLinks = decoded.Videos
		}
		return out
	}

	return Reply{
		Answer:           decoded.Answer,
		SuggestedReplies: decoded.UserOptions,
		VideoLinks:       decoded.Videos,
		Fields:           usableFields(decoded),
	}
}

// decodeBraceSpan takes the greedy span from the first '{' to the last '}'
// and attempts a structured decode. This is a documented heuristic, not a
// JSON scanner: it tolerates surrounding prose and code fences, and takes the
// single widest span when the reply contains several JSON-like fragments.
func decodeBraceSpan(raw string) (wireReply, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return wireReply{}, false
	}

	var decoded wireReply
	if err := json.Unmarshal([]byte(raw[start:end+1]), &decoded); err != nil {
		return wireReply{}, false
	}
	return decoded, true
}

func usableFields(w wireReply) contractx.LeadFields {
	return contractx.LeadFields{
		Name:          usable(w.Name),
		Mobile:        usable(w.Mobile),
		Email:         usable(w.Email),
		Country:       usable(w.Country),
		TargetDegree:  usable(w.TargetDegree),
		IntendedMajor: usable(w.IntendedMajor),
		College:       usable(w.College),
		Budget:        usable(w.Budget),
		Sentiment:     usable(w.Sentiment),
		Propensity:    usable(w.Propensity),
	}
}

func usable(v string) string {
	if _, bad := placeholders[v]; bad {
		return ""
	}
	return v
}

// fallbackAnswer strips the loose "user_options:" / "videos:" tails and code
// fence markers the model emits when it drifts out of strict JSON.
func fallbackAnswer(raw string) string {
	s := raw
	if i := strings.Index(s, "user_options:"); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(s, "videos:"); i >= 0 {
		s = s[:i]
	}
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
