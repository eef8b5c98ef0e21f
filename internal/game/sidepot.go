package game

import "sort"

// Pot is one layer of the showdown distribution: an amount and the
// nicknames eligible to win it.
type Pot struct {
	Amount   int
	Eligible []string
}

// SolveSidePots derives the ordered partition of the pot by commitment
// level. It is a pure function of the seats' Committed/Folded fields,
// independent of table mutation, so it is directly testable.
//
// Layer boundaries are the distinct Committed levels among non-folded
// seats, ascending. At each layer every seat (folded or not) contributes
// up to that layer from its own commitment, so folded players' forfeited
// chips stay in the pot; only non-folded seats at or above the layer are
// eligible to win it.
func SolveSidePots(seats []*Seat) []Pot {
	levelSet := make(map[int]bool)
	for _, s := range seats {
		if !s.Folded && s.Committed > 0 {
			levelSet[s.Committed] = true
		}
	}
	if len(levelSet) == 0 {
		return nil
	}
	levels := make([]int, 0, len(levelSet))
	for l := range levelSet {
		levels = append(levels, l)
	}
	sort.Ints(levels)

	pots := make([]Pot, 0, len(levels))
	prev := 0
	for _, level := range levels {
		amount := 0
		var eligible []string
		for _, s := range seats {
			contribution := s.Committed - prev
			if cap := level - prev; contribution > cap {
				contribution = cap
			}
			if contribution > 0 {
				amount += contribution
			}
			if !s.Folded && s.Committed >= level {
				eligible = append(eligible, s.Nickname)
			}
		}
		if amount > 0 && len(eligible) > 0 {
			pots = append(pots, Pot{Amount: amount, Eligible: eligible})
		}
		prev = level
	}
	return pots
}
