// Package prompt carries the counselor system prompt as an embedded
// template.
package prompt

import (
	_ "embed"
	"strings"
	"time"
)

//go:embed template/counselor.txt
var counselorRaw string

// Counselor returns the system prompt with the current date filled in.
func Counselor(now time.Time) string {
	p := strings.TrimSpace(counselorRaw)
	return strings.ReplaceAll(p, "{current_date}", now.Format("January 2006"))
}
