package knowledge

import (
	"context"
	"strings"
)

// candidatePool caps how many entries are scanned per lookup. Businesses
// with more active entries than this only have their most recently updated
// considered.
const candidatePool = 50

// SnippetSource retrieves knowledge entries whose keywords appear in a
// message and renders them as prompt snippets. It satisfies the assistant's
// knowledge interface.
type SnippetSource struct {
	repo Repository
}

// NewSnippetSource creates a snippet source over the repository
func NewSnippetSource(repo Repository) *SnippetSource {
	return &SnippetSource{repo: repo}
}

// Relevant returns up to limit "Title: Content" snippets for entries with at
// least one keyword contained in the message, case-insensitively. The
// candidate pool is the most recently updated active entries, so an
// off-topic message yields nothing rather than random entries.
func (s *SnippetSource) Relevant(ctx context.Context, businessID, message string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 5
	}

	messageLower := strings.ToLower(strings.TrimSpace(message))
	if messageLower == "" {
		return nil, nil
	}

	entries, err := s.repo.Recent(ctx, businessID, candidatePool)
	if err != nil {
		return nil, err
	}

	var snippets []string
	for _, entry := range entries {
		if !keywordMatch(entry.Keywords, messageLower) {
			continue
		}
		snippets = append(snippets, entry.Title+": "+entry.Content)
		if len(snippets) >= limit {
			break
		}
	}
	return snippets, nil
}

func keywordMatch(keywords []string, messageLower string) bool {
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(messageLower, kw) {
			return true
		}
	}
	return false
}
