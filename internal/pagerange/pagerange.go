// Package pagerange turns a page selection into an extraction plan: the
// ordered list of 0-based page groups, one group per output document.
package pagerange

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/local/podofo/internal/pdferr"
)

// Mode selects how a document is split.
type Mode string

const (
	ModeAll   Mode = "all"
	ModeRange Mode = "range"
	ModeFixed Mode = "fixed"
)

// Selection describes which pages go into which output document.
// Tokens are only read in range mode and ChunkSize only in fixed mode.
type Selection struct {
	Mode      Mode
	Tokens    []string
	ChunkSize int
}

// Group is a non-empty, strictly increasing list of 0-based page indices.
type Group []int

// Plan is the ordered list of groups; position i becomes page-<i+1>.pdf.
type Plan []Group

// Resolve computes the extraction plan for a document of totalPages pages.
//
// Range mode never fails: malformed or out-of-bounds tokens are dropped and
// the surviving pages are deduplicated, sorted and emitted one per group.
func Resolve(totalPages int, sel Selection) (Plan, error) {
	switch sel.Mode {
	case ModeAll, "":
		if totalPages <= 0 {
			return nil, pdferr.Errorf(pdferr.InvalidInput, "resolve pages", "document has no pages")
		}
		return chunk(totalPages, 1), nil
	case ModeRange:
		return resolveRange(totalPages, sel.Tokens), nil
	case ModeFixed:
		if totalPages <= 0 {
			return nil, pdferr.Errorf(pdferr.InvalidInput, "resolve pages", "document has no pages")
		}
		size := sel.ChunkSize
		if size <= 0 {
			size = 1
		}
		return chunk(totalPages, min(size, totalPages)), nil
	default:
		return nil, pdferr.Errorf(pdferr.InvalidInput, "resolve pages", "unknown split mode %q", sel.Mode)
	}
}

func chunk(total, size int) Plan {
	plan := make(Plan, 0, total/size+1)
	for start := 0; start < total; start += size {
		end := min(start+size, total)
		g := make(Group, 0, end-start)
		for i := start; i < end; i++ {
			g = append(g, i)
		}
		plan = append(plan, g)
	}
	return plan
}

func resolveRange(total int, tokens []string) Plan {
	seen := make(map[int]struct{})
	for _, tok := range tokens {
		start, end, ok := parseToken(tok)
		if !ok || start < 1 || end > total || start > end {
			continue
		}
		for p := start; p <= end; p++ {
			seen[p-1] = struct{}{}
		}
	}
	idx := make([]int, 0, len(seen))
	for p := range seen {
		idx = append(idx, p)
	}
	slices.Sort(idx)

	plan := make(Plan, 0, len(idx))
	for _, p := range idx {
		plan = append(plan, Group{p})
	}
	return plan
}

// parseToken reads "n" or "start-end" (1-based, inclusive).
func parseToken(tok string) (int, int, bool) {
	tok = strings.TrimSpace(tok)
	if a, b, found := strings.Cut(tok, "-"); found {
		start, err1 := strconv.Atoi(strings.TrimSpace(a))
		end, err2 := strconv.Atoi(strings.TrimSpace(b))
		if err1 != nil || err2 != nil {
			return 0, 0, false
		}
		return start, end, true
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, 0, false
	}
	return n, n, true
}

// ParseMode maps a form value to a Mode. Empty means ModeAll.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeAll, nil
	case ModeAll, ModeRange, ModeFixed:
		return m, nil
	default:
		return "", pdferr.Errorf(pdferr.InvalidInput, "parse mode", "unknown split mode %q", s)
	}
}

// ParseTokens decodes a JSON array of selector tokens. Numbers are kept as
// their literal text; other element types are kept as their raw JSON so
// the resolver drops them. An empty string yields no tokens.
func ParseTokens(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var elems []json.RawMessage
	dec := json.NewDecoder(strings.NewReader(raw))
	if err := dec.Decode(&elems); err != nil {
		return nil, pdferr.Errorf(pdferr.InvalidInput, "parse ranges", "ranges must be a JSON array: %w", err)
	}
	tokens := make([]string, 0, len(elems))
	for _, e := range elems {
		e = bytes.TrimSpace(e)
		if len(e) > 0 && e[0] == '"' {
			var s string
			if err := json.Unmarshal(e, &s); err != nil {
				return nil, pdferr.Errorf(pdferr.InvalidInput, "parse ranges", "bad range token: %w", err)
			}
			tokens = append(tokens, s)
			continue
		}
		tokens = append(tokens, string(e))
	}
	return tokens, nil
}

// ParseChunkSize reads the fixed-mode chunk size from its leading digits.
// Anything that does not start with a positive integer becomes 1.
func ParseChunkSize(s string) int {
	n, ok := LeadingInt(s)
	if !ok || n <= 0 {
		return 1
	}
	return n
}

// LeadingInt reads an optionally signed decimal integer from the start of
// s after leading whitespace, ignoring whatever follows it ("300dpi" is
// 300). Values too large for an int saturate. ok is false when s does not
// start with a digit.
func LeadingInt(s string) (n int, ok bool) {
	s = strings.TrimLeft(s, " \t\r\n")
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		n = math.MaxInt
	}
	if neg {
		n = -n
	}
	return n, true
}

// OutputName is the file name of the document produced for plan position i.
func OutputName(i int) string { return fmt.Sprintf("page-%d.pdf", i+1) }

// Pages returns the group as 1-based page numbers.
func (g Group) Pages() []int {
	out := make([]int, len(g))
	for i, p := range g {
		out[i] = p + 1
	}
	return out
}
