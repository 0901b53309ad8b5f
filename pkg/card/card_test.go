package card

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalDeckHas52UniqueCards(t *testing.T) {
	deck := CanonicalDeck()
	require.Len(t, deck, 52)

	seen := map[Card]bool{}
	for _, c := range deck {
		require.False(t, seen[c], "duplicate card %v", c)
		seen[c] = true
	}
}

func TestEncodeDecodeRoundTripsEveryCard(t *testing.T) {
	for _, c := range CanonicalDeck() {
		pos, ok := Encode(c)
		require.True(t, ok)

		decoded, ok := Decode(pos)
		require.True(t, ok)
		require.Equal(t, c, decoded)
	}
}

func TestDecodeRejectsOutOfRangePosition(t *testing.T) {
	_, ok := Decode(Position(-1))
	require.False(t, ok)

	_, ok = Decode(Position(52))
	require.False(t, ok)
}

func TestEncodeRejectsUnknownCard(t *testing.T) {
	_, ok := Encode(Card{Suit: "X", Rank: "2"})
	require.False(t, ok)
}

func TestRankValueOrdersTwoThroughAce(t *testing.T) {
	require.Equal(t, 2, Two.Value())
	require.Equal(t, 14, Ace.Value())
	require.Greater(t, King.Value(), Queen.Value())
}

func TestCardJSONRoundTrips(t *testing.T) {
	original := Card{Suit: Hearts, Rank: Ace}
	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Card
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, original, decoded)
}

func TestCardStringFormatsRankThenSuit(t *testing.T) {
	require.Equal(t, "KS", Card{Suit: Spades, Rank: King}.String())
}
