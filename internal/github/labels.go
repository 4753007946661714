// internal/github/labels.go
package github

import "strings"

// goodFirstIssueVocabulary is the fixed beginner-friendliness vocabulary. A
// repository label qualifies when its lower-cased name contains any of these
// as a substring. Substring matching is intentionally fuzzy ("not-easy-to-fix"
// matches "easy"); do not tighten it to whole-word matching.
var goodFirstIssueVocabulary = []string{
	"good first issue",
	"good-first-issue",
	"beginner",
	"easy",
	"help wanted",
	"help-wanted",
	"first-timers-only",
	"up-for-grabs",
	"hacktoberfest",
}

// MatchGoodFirstIssueLabels reduces a label set to the lower-cased subset
// matching the vocabulary, preserving first-seen order. A label matching
// multiple vocabulary terms still appears once.
func MatchGoodFirstIssueLabels(labels []string) []string {
	matched := make([]string, 0, len(labels))
	for _, label := range labels {
		name := strings.ToLower(label)
		for _, term := range goodFirstIssueVocabulary {
			if strings.Contains(name, term) {
				matched = append(matched, name)
				break
			}
		}
	}
	return matched
}
