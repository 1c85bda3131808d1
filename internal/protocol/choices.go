package protocol

import "sort"

// Choice is one selectable entry. Choices live in a set ordered by
// (priority, id, text); priority is rewritten by the surface when it
// re-scores against new input, so the order is not insertion order.
type Choice struct {
	Priority int64  `json:"priority"`
	ID       uint64 `json:"id"`
	Text     string `json:"text"`
}

// Less orders choices by (priority, id, text).
func (c Choice) Less(other Choice) bool {
	if c.Priority != other.Priority {
		return c.Priority < other.Priority
	}
	if c.ID != other.ID {
		return c.ID < other.ID
	}
	return c.Text < other.Text
}

// ChoiceSet is an ordered, deduplicated collection of choices plus an
// optional highlight. Selected is a positional index into the ordered
// sequence, not a choice identity, so any membership or order change must be
// followed by Clamp.
type ChoiceSet struct {
	Options  []Choice `json:"options"`
	Selected *int     `json:"selected,omitempty"`
}

// Len returns the number of choices
func (s *ChoiceSet) Len() int { return len(s.Options) }

// IsEmpty reports whether the set holds no choices
func (s *ChoiceSet) IsEmpty() bool { return len(s.Options) == 0 }

// Sort re-establishes (priority, id, text) order. Called after the surface
// rewrites priorities; element identity is unchanged so no dedupe is needed.
func (s *ChoiceSet) Sort() {
	sort.Slice(s.Options, func(i, j int) bool {
		return s.Options[i].Less(s.Options[j])
	})
}

// Normalize sorts, removes exact duplicates and clamps the highlight. Run on
// every decoded set so downstream code can trust the ordering invariant.
func (s *ChoiceSet) Normalize() {
	s.Sort()
	deduped := s.Options[:0]
	for _, opt := range s.Options {
		if n := len(deduped); n > 0 && opt == deduped[n-1] {
			continue
		}
		deduped = append(deduped, opt)
	}
	s.Options = deduped
	s.Clamp()
}

// Clamp forces the highlight back into 0..len. An index past the end snaps
// to the last choice; an empty set clears the highlight entirely.
func (s *ChoiceSet) Clamp() {
	if s.Selected == nil {
		return
	}
	if len(s.Options) == 0 {
		s.Selected = nil
		return
	}
	if *s.Selected >= len(s.Options) {
		last := len(s.Options) - 1
		s.Selected = &last
	}
}

// At returns the choice at position i if it exists.
func (s *ChoiceSet) At(i int) (Choice, bool) {
	if i < 0 || i >= len(s.Options) {
		return Choice{}, false
	}
	return s.Options[i], true
}

// SelectedChoice resolves the highlight to its choice.
func (s *ChoiceSet) SelectedChoice() (Choice, bool) {
	if s.Selected == nil {
		return Choice{}, false
	}
	return s.At(*s.Selected)
}
