package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeckHas52UniqueCards(t *testing.T) {
	d := NewDeck()
	require.Equal(t, 52, d.Remaining())

	seen := make(map[Card]bool)
	for !d.IsEmpty() {
		c, ok := d.Pop()
		require.True(t, ok)
		assert.False(t, seen[c], "duplicate card %s", c)
		seen[c] = true
	}
	assert.Len(t, seen, 52)
}

func TestShuffleIsAPermutation(t *testing.T) {
	d := NewDeck()
	before := append([]Card(nil), d.cards...)
	d.Shuffle()
	after := d.cards

	require.Len(t, after, len(before))
	beforeSet := make(map[Card]int)
	for _, c := range before {
		beforeSet[c]++
	}
	for _, c := range after {
		beforeSet[c]--
	}
	for c, n := range beforeSet {
		assert.Zero(t, n, "card %s count changed by shuffle", c)
	}
}

func TestPopEmptyDeck(t *testing.T) {
	d := &Deck{}
	_, ok := d.Pop()
	assert.False(t, ok)
	assert.True(t, d.IsEmpty())
}

func TestDealNCapsAtRemaining(t *testing.T) {
	d := NewDeck()
	d.DealN(50)
	require.Equal(t, 2, d.Remaining())

	cards := d.DealN(10)
	assert.Len(t, cards, 2)
	assert.True(t, d.IsEmpty())
}

func TestCardRoundTripsThroughWireFormat(t *testing.T) {
	for _, s := range []string{"AS", "TD", "2C", "KH", "9S"} {
		c, err := ParseCard(s)
		require.NoError(t, err)
		assert.Equal(t, s, c.String())
	}
}

func TestParseCardRejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "A", "ASX", "1S", "AX"} {
		_, err := ParseCard(s)
		assert.Error(t, err, "input %q", s)
	}
}
