// Package lead holds the per-session profile accumulator: the running lead
// record built up turn by turn from model extractions, plus the interaction
// transcript it is snapshotted with.
package lead

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	contractx "github.com/avanse/counselor/agent/contract"
)

const historyWindow = 10

// Message is one transcript entry as shown to the model.
type Message struct {
	Role    string
	Content string
}

// Session owns all per-session mutable state: a stable session id, the lead
// profile, and the append-only interaction logs. It is not safe for
// concurrent use; each session processes one turn at a time.
type Session struct {
	id        string
	startedAt time.Time
	now       func() time.Time

	fields contractx.LeadFields

	messages        []Message
	conversationLog []string
	userInputLog    []string
}

func NewSession() *Session {
	s := &Session{
		id:  uuid.NewString(),
		now: time.Now,
	}
	s.startedAt = s.now()
	return s
}

// ID returns the opaque session token used as the upsert key.
func (s *Session) ID() string { return s.id }

// Fields returns a copy of the current profile.
func (s *Session) Fields() contractx.LeadFields { return s.fields }

// Merge folds newly extracted fields into the profile. Values already present
// are extended comma-separated with only the tokens not seen before; merging
// the same extraction twice is a no-op after the first application.
func (s *Session) Merge(extracted contractx.LeadFields) {
	mergeField(&s.fields.Name, extracted.Name)
	mergeField(&s.fields.Mobile, extracted.Mobile)
	mergeField(&s.fields.Email, extracted.Email)
	mergeField(&s.fields.Country, extracted.Country)
	mergeField(&s.fields.TargetDegree, extracted.TargetDegree)
	mergeField(&s.fields.IntendedMajor, extracted.IntendedMajor)
	mergeField(&s.fields.College, extracted.College)
	mergeField(&s.fields.Budget, extracted.Budget)
	mergeField(&s.fields.Sentiment, extracted.Sentiment)
	mergeField(&s.fields.Propensity, extracted.Propensity)
}

// mergeField appends the comma-separated tokens of newVal that are not
// already present in cur, preserving first-seen order. Token comparison is
// exact after trimming. When nothing new is added, cur is left byte-identical.
func mergeField(cur *string, newVal string) {
	if newVal == "" {
		return
	}
	if *cur == "" {
		*cur = newVal
		return
	}

	existing := splitTokens(*cur)
	changed := false
	for _, tok := range splitTokens(newVal) {
		if tok == "" || containsToken(existing, tok) {
			continue
		}
		existing = append(existing, tok)
		changed = true
	}
	if changed {
		*cur = strings.Join(existing, ", ")
	}
}

func splitTokens(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func containsToken(list []string, tok string) bool {
	for _, v := range list {
		if v == tok {
			return true
		}
	}
	return false
}

// RecordInteraction appends one turn to the conversation log and the
// user-input-only log. Both logs are append-only for the session's lifetime.
func (s *Session) RecordInteraction(userText, botText string) {
	stamp := s.now().Format("15:04:05")
	s.conversationLog = append(s.conversationLog, fmt.Sprintf("[%s] User: %s | Bot: %s", stamp, userText, botText))
	s.userInputLog = append(s.userInputLog, fmt.Sprintf("[%s] %s", stamp, userText))
}

// AppendMessage adds a transcript entry used for prompt history.
func (s *Session) AppendMessage(role, content string) {
	s.messages = append(s.messages, Message{Role: role, Content: content})
}

// HistoryText formats the most recent transcript entries as "role: content"
// lines for the model's context window.
func (s *Session) HistoryText() string {
	msgs := s.messages
	if len(msgs) > historyWindow {
		msgs = msgs[len(msgs)-historyWindow:]
	}
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, m.Role+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

// Snapshot projects the current profile and logs into the persisted row
// shape. Sentiment and Propensity fall back to their defaults when the model
// never produced a usable value.
func (s *Session) Snapshot() contractx.Row {
	now := s.now()
	return contractx.Row{
		SessionID:        s.id,
		Timestamp:        now.Format("2006-01-02 15:04:05"),
		Name:             s.fields.Name,
		Mobile:           s.fields.Mobile,
		Email:            s.fields.Email,
		Country:          s.fields.Country,
		TargetDegree:     s.fields.TargetDegree,
		IntendedMajor:    s.fields.IntendedMajor,
		College:          s.fields.College,
		Budget:           s.fields.Budget,
		Sentiment:        defaulted(s.fields.Sentiment, "Neutral"),
		Propensity:       defaulted(s.fields.Propensity, "Low"),
		TimeSpent:        formatElapsed(now.Sub(s.startedAt)),
		UserInputsOnly:   strings.Join(s.userInputLog, "\n"),
		FullConversation: strings.Join(s.conversationLog, "\n"),
	}
}

func defaulted(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// formatElapsed renders wall-clock time spent as H:MM:SS, sub-second
// truncated.
func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", total/3600, (total/60)%60, total%60)
}
