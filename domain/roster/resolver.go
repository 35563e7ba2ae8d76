// Package roster resolves noisy recognized text against the canonical god
// roster using multi-metric fuzzy similarity.
package roster

import (
	"sort"
	"strings"
	"unicode"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// Resolver maps OCR fragments to canonical roster entries. It holds no
// mutable state and is safe for concurrent use.
type Resolver struct {
	names     []string // canonical order; ties resolve to the earliest entry
	lower     []string
	threshold float64 // 0-100 scale
	lev       *metrics.Levenshtein
	swg       *metrics.SmithWatermanGotoh
}

// NewResolver builds a resolver over the given roster. The roster order is
// the deterministic tie-break order. Threshold is on a 0-100 scale.
func NewResolver(names []string, threshold int) *Resolver {
	r := &Resolver{
		names:     append([]string(nil), names...),
		lower:     make([]string, len(names)),
		threshold: float64(threshold),
		lev:       metrics.NewLevenshtein(),
		swg:       metrics.NewSmithWatermanGotoh(),
	}
	for i, n := range r.names {
		r.lower[i] = strings.ToLower(n)
	}
	return r
}

// Names returns a copy of the roster in resolution order.
func (r *Resolver) Names() []string {
	return append([]string(nil), r.names...)
}

// Resolve returns the canonical entry for raw, or false when no entry scores
// at or above the threshold. An exact case-sensitive match always wins,
// regardless of the configured threshold.
func (r *Resolver) Resolve(raw string) (string, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", false
	}
	for _, n := range r.names {
		if n == text {
			return n, true
		}
	}

	cleaned := clean(text)
	if cleaned == "" {
		return "", false
	}

	bestIdx := -1
	bestScore := 0.0
	for i, candidate := range r.lower {
		// Strictly-greater comparison keeps the first roster entry on ties.
		if s := r.score(cleaned, candidate); s > bestScore {
			bestScore, bestIdx = s, i
		}
	}
	if bestIdx >= 0 && bestScore >= r.threshold {
		return r.names[bestIdx], true
	}
	return "", false
}

// score is the maximum of three similarity strategies, on a 0-100 scale:
// full-string, substring-tolerant and token-order-insensitive.
func (r *Resolver) score(a, b string) float64 {
	full := strutil.Similarity(a, b, r.lev)
	partial := strutil.Similarity(a, b, r.swg)
	tokens := strutil.Similarity(sortTokens(a), sortTokens(b), r.lev)

	best := full
	if partial > best {
		best = partial
	}
	if tokens > best {
		best = tokens
	}
	return best * 100
}

// clean strips everything but letters, digits and spaces, collapses runs of
// whitespace and lowercases the result.
func clean(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func sortTokens(s string) string {
	fields := strings.Fields(s)
	sort.Strings(fields)
	return strings.Join(fields, " ")
}
