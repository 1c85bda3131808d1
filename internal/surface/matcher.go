package surface

import (
	"math"

	"github.com/sahilm/fuzzy"

	"github.com/codefionn/auswahl/internal/protocol"
)

// unmatchedPriority sorts choices that miss the query behind every match.
const unmatchedPriority = int64(math.MaxInt64)

// rescore recomputes choice priorities for the query and re-sorts the set.
// The none matcher keeps client-assigned priorities untouched.
func rescore(kind protocol.MatcherKind, set *protocol.ChoiceSet, query string) {
	if kind != protocol.MatcherFuzzy {
		return
	}

	if query == "" {
		// An empty query ranks everything equal; ties fall back to id and
		// text order.
		for i := range set.Options {
			set.Options[i].Priority = 0
		}
		set.Sort()
		return
	}

	texts := make([]string, len(set.Options))
	for i, opt := range set.Options {
		texts[i] = opt.Text
	}

	for i := range set.Options {
		set.Options[i].Priority = unmatchedPriority
	}
	for _, match := range fuzzy.Find(query, texts) {
		// Better matches score higher; negating puts them first in the
		// ascending sort.
		set.Options[match.Index].Priority = -int64(match.Score)
	}

	set.Sort()
}
