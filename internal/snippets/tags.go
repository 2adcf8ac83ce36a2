package snippets

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/PabloPavan/snipshare_api/internal/apperrors"
)

// TagName is a tag as submitted (Name) and its identity key (Key).
type TagName struct {
	Name string
	Key  string
}

// FoldTag returns the identity key of a tag name. Lookup, insert and
// de-duplication all compare keys, never raw names.
func FoldTag(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// DecodeTags parses the JSON array carried in the tags form field. An absent
// or blank field is an empty list.
func DecodeTags(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidInput, ErrInvalidTags.Error(), ErrInvalidTags)
	}
	if tags == nil {
		tags = []string{}
	}
	return tags, nil
}

// NormalizeTags drops blank entries and duplicate keys, keeping the first
// spelling, and returns the result sorted by key.
func NormalizeTags(raw []string) []TagName {
	seen := make(map[string]struct{}, len(raw))
	out := make([]TagName, 0, len(raw))
	for _, name := range raw {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		key := FoldTag(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, TagName{Name: name, Key: key})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func tagKeys(tags []TagName) []string {
	keys := make([]string, len(tags))
	for i, t := range tags {
		keys[i] = t.Key
	}
	return keys
}
