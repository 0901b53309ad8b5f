package mentalpoker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opencardroom/pokerd/pkg/card"
)

func fiveSeats() []int { return []int{0, 1, 2, 3, 4} }

func commitAll(t *testing.T, c *Coordinator, keys, salts map[int][]byte) {
	t.Helper()
	for _, s := range fiveSeats() {
		h := CommitmentHash(keys[s], salts[s])
		require.NoError(t, c.SubmitCommitment(s, h, time.Now()))
	}
}

func fakeDeck() []Ciphertext {
	out := make([]Ciphertext, 52)
	for i := range out {
		out[i] = Ciphertext{byte(i)}
	}
	return out
}

func shuffleAll(t *testing.T, c *Coordinator) {
	t.Helper()
	for range fiveSeats() {
		require.NoError(t, c.SubmitShuffle(c.CurrentShuffler(), fakeDeck(), time.Now()))
	}
}

func TestCommitmentPhaseRejectsDuplicateAndAdvancesOnAllFive(t *testing.T) {
	c := New(fiveSeats(), 30*time.Second)
	require.NoError(t, c.Start(time.Now()))

	keys := map[int][]byte{0: {1}, 1: {2}, 2: {3}, 3: {4}, 4: {5}}
	salts := map[int][]byte{0: {9}, 1: {9}, 2: {9}, 3: {9}, 4: {9}}

	for _, s := range fiveSeats()[:4] {
		require.NoError(t, c.SubmitCommitment(s, CommitmentHash(keys[s], salts[s]), time.Now()))
		require.Equal(t, Commitment, c.Phase)
	}

	err := c.SubmitCommitment(0, CommitmentHash(keys[0], salts[0]), time.Now())
	require.Error(t, err)

	require.NoError(t, c.SubmitCommitment(4, CommitmentHash(keys[4], salts[4]), time.Now()))
	require.Equal(t, Shuffle, c.Phase)
	require.Len(t, c.deck, 52)
}

func TestShuffleOnlyAcceptsCurrentShufflerAndExactLength(t *testing.T) {
	c := New(fiveSeats(), 30*time.Second)
	require.NoError(t, c.Start(time.Now()))
	commitAll(t, c, map[int][]byte{0: {1}, 1: {2}, 2: {3}, 3: {4}, 4: {5}},
		map[int][]byte{0: {9}, 1: {9}, 2: {9}, 3: {9}, 4: {9}})

	require.Equal(t, 0, c.CurrentShuffler())
	err := c.SubmitShuffle(1, fakeDeck(), time.Now())
	require.Error(t, err)

	short := fakeDeck()[:51]
	err = c.SubmitShuffle(0, short, time.Now())
	require.Error(t, err)

	require.NoError(t, c.SubmitShuffle(0, fakeDeck(), time.Now()))
	require.Equal(t, 1, c.CurrentShuffler())

	for _, s := range []int{1, 2, 3, 4} { // finishes the remaining turns
		require.NoError(t, c.SubmitShuffle(s, fakeDeck(), time.Now()))
	}
	require.Equal(t, Deal, c.Phase)
}

// TestCommitmentMismatchRejectsReveal implements spec.md §8 Scenario 5.
func TestCommitmentMismatchRejectsReveal(t *testing.T) {
	c := New(fiveSeats(), 30*time.Second)
	require.NoError(t, c.Start(time.Now()))

	keys := map[int][]byte{0: {1}, 1: {2}, 2: {3}, 3: {4}, 4: {5}}
	salts := map[int][]byte{0: {9}, 1: {9}, 2: {9}, 3: {9}, 4: {9}}
	commitAll(t, c, keys, salts)
	shuffleAll(t, c)
	require.Equal(t, Deal, c.Phase)

	pos := card.Position(0)
	req, err := c.RequestReveal(pos, HoleCard, 0, time.Now())
	require.NoError(t, err)
	require.Equal(t, Play, c.Phase)
	require.Len(t, req.Required, 4) // everyone except recipient seat 0

	// Seats 1, 2, 3 reveal honestly.
	for _, s := range []int{1, 2, 3} {
		complete, err := c.SubmitReveal(s, pos, keys[s], salts[s])
		require.NoError(t, err)
		require.False(t, complete)
	}

	// Seat 4 submits a (key, salt) that does not hash to its commitment.
	complete, err := c.SubmitReveal(4, pos, []byte{99}, []byte{99})
	require.Error(t, err)
	require.False(t, complete)
	require.True(t, c.Flagged(4))

	// No state mutation beyond the flag: position is still not reveal-complete.
	require.False(t, isRevealComplete(c.reveals[pos]))

	require.NoError(t, c.Abort(err))
	require.Equal(t, Aborted, c.Phase)
	require.Error(t, c.AbortError())
}

func TestCommunityCardRequiresEverySeatedPlayer(t *testing.T) {
	c := New(fiveSeats(), 30*time.Second)
	require.NoError(t, c.Start(time.Now()))
	keys := map[int][]byte{0: {1}, 1: {2}, 2: {3}, 3: {4}, 4: {5}}
	salts := map[int][]byte{0: {9}, 1: {9}, 2: {9}, 3: {9}, 4: {9}}
	commitAll(t, c, keys, salts)
	shuffleAll(t, c)

	pos := card.Position(51)
	req, err := c.RequestReveal(pos, CommunityCard, -1, time.Now())
	require.NoError(t, err)
	require.Len(t, req.Required, 5)

	var complete bool
	for _, s := range fiveSeats() {
		complete, err = c.SubmitReveal(s, pos, keys[s], salts[s])
		require.NoError(t, err)
	}
	require.True(t, complete)
}

func TestDuplicateRevealIsIdempotent(t *testing.T) {
	c := New(fiveSeats(), 30*time.Second)
	require.NoError(t, c.Start(time.Now()))
	keys := map[int][]byte{0: {1}, 1: {2}, 2: {3}, 3: {4}, 4: {5}}
	salts := map[int][]byte{0: {9}, 1: {9}, 2: {9}, 3: {9}, 4: {9}}
	commitAll(t, c, keys, salts)
	shuffleAll(t, c)

	pos := card.Position(10)
	_, err := c.RequestReveal(pos, HoleCard, 2, time.Now())
	require.NoError(t, err)

	_, err = c.SubmitReveal(0, pos, keys[0], salts[0])
	require.NoError(t, err)
	complete, err := c.SubmitReveal(0, pos, keys[0], salts[0])
	require.NoError(t, err)
	require.False(t, complete)
}
