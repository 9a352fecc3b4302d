package filter

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/thunfischtoast/gitlab-visualizer/internal/models"
)

// SnippetContext is the number of characters kept on each side of a match
const SnippetContext = 60

const ellipsis = "…"

// Snippet is the text around the first search match in a description
type Snippet struct {
	Before string `json:"before"`
	Match  string `json:"match"`
	After  string `json:"after"`
}

// ExtractSnippet finds the first case-insensitive occurrence of query in text
// after collapsing whitespace runs, and returns it with up to contextChars
// characters on each side. Truncated sides are marked with an ellipsis.
func ExtractSnippet(text, query string, contextChars int) *Snippet {
	if query == "" {
		return nil
	}

	normalized := []rune(strings.Join(strings.Fields(text), " "))
	lowered := lowerRunes(normalized)
	needle := string(lowerRunes([]rune(query)))

	byteIdx := strings.Index(string(lowered), needle)
	if byteIdx == -1 {
		return nil
	}
	idx := utf8.RuneCountInString(string(lowered)[:byteIdx])
	matchLen := utf8.RuneCountInString(needle)

	start := max(0, idx-contextChars)
	end := min(len(normalized), idx+matchLen+contextChars)

	snippet := &Snippet{
		Before: string(normalized[start:idx]),
		Match:  string(normalized[idx : idx+matchLen]),
		After:  string(normalized[idx+matchLen : end]),
	}
	if start > 0 {
		snippet.Before = ellipsis + snippet.Before
	}
	if end < len(normalized) {
		snippet.After += ellipsis
	}
	return snippet
}

// lowerRunes lowercases rune by rune so indexes line up with the input
func lowerRunes(runes []rune) []rune {
	out := make([]rune, len(runes))
	for i, r := range runes {
		out[i] = unicode.ToLower(r)
	}
	return out
}

// IssueSnippet returns the description snippet shown for an issue that
// matches searchText only in its description
func IssueSnippet(issue models.Issue, searchText string) *Snippet {
	return descriptionSnippet(issue.Title, issue.Description, searchText)
}

// EpicSnippet is IssueSnippet for epics
func EpicSnippet(epic models.Epic, searchText string) *Snippet {
	return descriptionSnippet(epic.Title, epic.Description, searchText)
}

func descriptionSnippet(title, description, searchText string) *Snippet {
	if searchText == "" || description == "" {
		return nil
	}
	if strings.Contains(strings.ToLower(title), strings.ToLower(searchText)) {
		return nil
	}
	return ExtractSnippet(description, searchText, SnippetContext)
}
