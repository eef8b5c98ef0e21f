package evaluator

import (
	"sort"

	"github.com/cardtable/holdem/internal/deck"
)

// Evaluate returns the best HandRank reachable from a bag of 5 to 7 cards,
// selecting the maximum over all 5-card subsets when more than 5 are given.
// The result does not depend on input order.
func Evaluate(cards []deck.Card) HandRank {
	switch len(cards) {
	case 5:
		return evaluate5(cards)
	case 6, 7:
		best := HandRank(0)
		forEachSubset5(cards, func(subset []deck.Card) {
			if r := evaluate5(subset); r > best {
				best = r
			}
		})
		return best
	default:
		panic("evaluator: Evaluate requires 5 to 7 cards")
	}
}

// forEachSubset5 invokes fn once per 5-card combination of cards.
func forEachSubset5(cards []deck.Card, fn func(subset []deck.Card)) {
	n := len(cards)
	idx := make([]int, 5)
	for i := range idx {
		idx[i] = i
	}
	subset := make([]deck.Card, 5)
	for {
		for i, j := range idx {
			subset[i] = cards[j]
		}
		fn(subset)

		// advance to the next combination (odometer with the
		// "rightmost movable index" rule).
		i := 4
		for i >= 0 && idx[i] == n-5+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < 5; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

// evaluate5 ranks exactly 5 cards.
func evaluate5(cards []deck.Card) HandRank {
	var rankCounts [15]int
	var suitCounts [4]int
	for _, c := range cards {
		rankCounts[c.Rank]++
		suitCounts[c.Suit]++
	}

	isFlush := false
	for _, n := range suitCounts {
		if n == 5 {
			isFlush = true
		}
	}

	straightTop, isStraight := detectStraight(rankCounts)

	if isFlush && isStraight {
		if straightTop == int(deck.Ace) {
			return pack(RoyalFlush, straightTop)
		}
		return pack(StraightFlush, straightTop)
	}

	// Group ranks by multiplicity, each group sorted rank-descending.
	var quads, trips, pairs, singles []int
	for rank := int(deck.Ace); rank >= int(deck.Two); rank-- {
		switch rankCounts[rank] {
		case 4:
			quads = append(quads, rank)
		case 3:
			trips = append(trips, rank)
		case 2:
			pairs = append(pairs, rank)
		case 1:
			singles = append(singles, rank)
		}
	}

	switch {
	case len(quads) == 1:
		return pack(FourOfAKind, quads[0], singles[0])
	case len(trips) == 1 && len(pairs) >= 1:
		return pack(FullHouse, trips[0], pairs[0])
	case len(trips) == 2:
		// Two sets of trips (only possible with 6+ card inputs collapsed to
		// 5 is impossible, but a 5-card hand cannot have two trips; kept
		// for completeness of the multiplicity table is unreachable here).
		return pack(FullHouse, trips[0], trips[1])
	case isFlush:
		ranksDesc := descendingRanks(cards)
		return pack(Flush, ranksDesc[0], ranksDesc[1], ranksDesc[2], ranksDesc[3], ranksDesc[4])
	case isStraight:
		return pack(Straight, straightTop)
	case len(trips) == 1:
		return pack(ThreeOfAKind, trips[0], singles[0], singles[1])
	case len(pairs) == 2:
		return pack(TwoPair, pairs[0], pairs[1], singles[0])
	case len(pairs) == 1:
		return pack(OnePair, pairs[0], singles[0], singles[1], singles[2])
	default:
		return pack(HighCard, singles[0], singles[1], singles[2], singles[3], singles[4])
	}
}

// detectStraight finds the highest 5-consecutive-rank run, including the
// ace-low wheel (A-2-3-4-5, reported as top rank 5). It does not spuriously
// match the wheel when an ace is present but 2-3-4-5 are not all present.
func detectStraight(rankCounts [15]int) (top int, ok bool) {
	present := func(r int) bool { return rankCounts[r] > 0 }

	// Ace-high straights down to 6-high, checked high to low.
	for top := int(deck.Ace); top >= 6; top-- {
		run := true
		for r := top; r > top-5; r-- {
			if !present(r) {
				run = false
				break
			}
		}
		if run {
			return top, true
		}
	}
	// Wheel: A-2-3-4-5.
	if present(int(deck.Ace)) && present(2) && present(3) && present(4) && present(5) {
		return 5, true
	}
	return 0, false
}

func descendingRanks(cards []deck.Card) []int {
	ranks := make([]int, len(cards))
	for i, c := range cards {
		ranks[i] = int(c.Rank)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ranks)))
	return ranks
}
