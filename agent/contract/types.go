package contract

import (
	"fmt"
	"strings"
)

type Provider string

const (
	ProviderGemini     Provider = "gemini"
	ProviderOpenAI     Provider = "openai"
	ProviderOpenRouter Provider = "openrouter"
)

func ParseProvider(s string) (Provider, error) {
	switch Provider(strings.ToLower(strings.TrimSpace(s))) {
	case ProviderGemini:
		return ProviderGemini, nil
	case ProviderOpenAI:
		return ProviderOpenAI, nil
	case ProviderOpenRouter:
		return ProviderOpenRouter, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
}

// LeadFields is the fixed set of profile fields the model may extract in a
// single turn. An empty string means the field was not observed; placeholder
// values are filtered out at the parser boundary, never stored.
type LeadFields struct {
	Name          string
	Mobile        string
	Email         string
	Country       string
	TargetDegree  string
	IntendedMajor string
	College       string
	Budget        string
	Sentiment     string
	Propensity    string
}

// Citation is a grounding source the provider attached to its reply.
type Citation struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// TurnResult is the canonical outcome of one conversational turn. It is
// produced fresh per turn and not mutated afterwards.
type TurnResult struct {
	Answer           string
	SuggestedReplies []string
	VideoLinks       []string
	Fields           LeadFields
	Citations        []Citation
}

// Header is the persisted row schema, in exact column order.
var Header = []string{
	"Session_ID", "Timestamp", "Name", "Mobile", "Email", "Country",
	"Target_Degree", "Intended_Major", "College", "Budget", "Sentiment",
	"Propensity", "Time_Spent", "User_Inputs_Only", "Full_Conversation_History",
}

// Row is the flattened lead snapshot written to the tabular stores,
// one row per session, keyed by SessionID.
type Row struct {
	SessionID        string
	Timestamp        string
	Name             string
	Mobile           string
	Email            string
	Country          string
	TargetDegree     string
	IntendedMajor    string
	College          string
	Budget           string
	Sentiment        string
	Propensity       string
	TimeSpent        string
	UserInputsOnly   string
	FullConversation string
}

// Values returns the cell values in Header order.
func (r Row) Values() []string {
	return []string{
		r.SessionID, r.Timestamp, r.Name, r.Mobile, r.Email, r.Country,
		r.TargetDegree, r.IntendedMajor, r.College, r.Budget, r.Sentiment,
		r.Propensity, r.TimeSpent, r.UserInputsOnly, r.FullConversation,
	}
}
