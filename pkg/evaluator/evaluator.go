// Package evaluator implements the pure Hand Evaluator (spec.md §4.1): given
// 5 to 7 cards it returns a canonical ranking comparable by a total order.
//
// Grounded on the teacher's pkg/poker/hand_evaluator.go, which delegates the
// heavy lifting to github.com/chehsunliu/poker. We keep that library to score
// each 5-card combination and to label the result, and add our own C(n,5)
// search (shared by Evaluate and BestFive), category/sequence derivation and
// Compare contract so the total order and the wheel-straight rule in spec.md
// are explicit and independently testable.
package evaluator

import (
	"fmt"
	"sort"

	chehsunliu "github.com/chehsunliu/poker"

	"github.com/opencardroom/pokerd/pkg/card"
)

// Category is one of the ten standard Hold'em hand categories.
type Category int

const (
	HighCard Category = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

func (c Category) String() string {
	switch c {
	case HighCard:
		return "high card"
	case Pair:
		return "pair"
	case TwoPair:
		return "two pair"
	case ThreeOfAKind:
		return "three of a kind"
	case Straight:
		return "straight"
	case Flush:
		return "flush"
	case FullHouse:
		return "full house"
	case FourOfAKind:
		return "four of a kind"
	case StraightFlush:
		return "straight flush"
	case RoyalFlush:
		return "royal flush"
	default:
		return "unknown"
	}
}

// Ranking is the output of evaluating a hand: a category plus the ordered
// sequence of rank values ("primary cards" then "kickers") used to break
// ties within the category.
type Ranking struct {
	Category  Category
	BestHand  []card.Card
	Sequence  []int // descending rank values: primary cards, then kickers
	Label     string
	libraryRV int32 // chehsunliu's internal rank value, lower is better; used only to keep Compare cheap
}

// InvalidInputError is the programmer-error failure mode for fewer than 5
// cards (spec.md §4.1: "no I/O; deterministic").
type InvalidInputError struct {
	NumCards int
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("evaluator: need at least 5 cards, got %d", e.NumCards)
}

// Evaluate ranks the best 5-card hand obtainable from the given 5-7 cards.
// Panics with *InvalidInputError if fewer than 5 cards are given — this is a
// programmer error per spec.md §4.1, not a runtime condition callers recover
// from.
func Evaluate(cards []card.Card) Ranking {
	if len(cards) < 5 {
		panic(&InvalidInputError{NumCards: len(cards)})
	}

	best, bestRV := bestFiveOf(cards)
	category, sequence := categorize(best)

	return Ranking{
		Category:  category,
		BestHand:  best,
		Sequence:  sequence,
		Label:     chehsunliu.RankString(bestRV),
		libraryRV: bestRV,
	}
}

// BestFive returns the best 5-card subset of a 5-7 card hand, scanning every
// C(n,5) combination explicitly. Evaluate runs the same scan, so
// Evaluate(cards) and Evaluate(BestFive(cards)) always compare equal.
func BestFive(cards []card.Card) []card.Card {
	best, _ := bestFiveOf(cards)
	return best
}

func bestFiveOf(cards []card.Card) ([]card.Card, int32) {
	if len(cards) == 5 {
		cc, err := toLibrary(cards)
		if err != nil {
			panic(err)
		}
		rv := chehsunliu.Evaluate(cc)
		return append([]card.Card{}, cards...), rv
	}

	var bestCombo []card.Card
	var bestRV int32 = -1 // chehsunliu: lower is better; -1 marks "no combination scored yet"
	for _, combo := range combinations(cards, 5) {
		cc, err := toLibrary(combo)
		if err != nil {
			panic(err)
		}
		rv := chehsunliu.Evaluate(cc)
		if bestRV == -1 || rv < bestRV {
			bestRV = rv
			bestCombo = combo
		}
	}
	return bestCombo, bestRV
}

func combinations(cards []card.Card, k int) [][]card.Card {
	var out [][]card.Card
	n := len(cards)
	if k > n || k <= 0 {
		return out
	}
	var pick func(start int, cur []card.Card)
	pick = func(start int, cur []card.Card) {
		if len(cur) == k {
			combo := make([]card.Card, k)
			copy(combo, cur)
			out = append(out, combo)
			return
		}
		for i := start; i <= n-(k-len(cur)); i++ {
			pick(i+1, append(cur, cards[i]))
		}
	}
	pick(0, nil)
	return out
}

func toLibrary(cards []card.Card) ([]chehsunliu.Card, error) {
	out := make([]chehsunliu.Card, 0, len(cards))
	for _, c := range cards {
		lc, err := toLibraryCard(c)
		if err != nil {
			return nil, err
		}
		out = append(out, lc)
	}
	return out, nil
}

func toLibraryCard(c card.Card) (chehsunliu.Card, error) {
	var rankChar byte
	switch c.Rank {
	case card.Two:
		rankChar = '2'
	case card.Three:
		rankChar = '3'
	case card.Four:
		rankChar = '4'
	case card.Five:
		rankChar = '5'
	case card.Six:
		rankChar = '6'
	case card.Seven:
		rankChar = '7'
	case card.Eight:
		rankChar = '8'
	case card.Nine:
		rankChar = '9'
	case card.Ten:
		rankChar = 'T'
	case card.Jack:
		rankChar = 'J'
	case card.Queen:
		rankChar = 'Q'
	case card.King:
		rankChar = 'K'
	case card.Ace:
		rankChar = 'A'
	default:
		var zero chehsunliu.Card
		return zero, fmt.Errorf("evaluator: invalid rank %q", c.Rank)
	}

	var suitChar byte
	switch c.Suit {
	case card.Spades:
		suitChar = 's'
	case card.Hearts:
		suitChar = 'h'
	case card.Diamonds:
		suitChar = 'd'
	case card.Clubs:
		suitChar = 'c'
	default:
		var zero chehsunliu.Card
		return zero, fmt.Errorf("evaluator: invalid suit %q", c.Suit)
	}

	return chehsunliu.NewCard(string([]byte{rankChar, suitChar})), nil
}

// categorize derives the spec's {category, sequence-of-rank-values} view
// from a concrete best-5 hand, independent of the library's internal rank
// value — this is what makes Compare's "category, then descending sequence"
// contract (spec.md §4.1) directly inspectable rather than opaque.
func categorize(hand []card.Card) (Category, []int) {
	values := make([]int, len(hand))
	bySuit := map[card.Suit][]int{}
	byValue := map[int]int{}
	for i, c := range hand {
		v := c.Rank.Value()
		values[i] = v
		bySuit[c.Suit] = append(bySuit[c.Suit], v)
		byValue[v]++
	}
	sort.Sort(sort.Reverse(sort.IntSlice(values)))

	isFlush := false
	var flushValues []int
	for _, vs := range bySuit {
		if len(vs) >= 5 {
			isFlush = true
			flushValues = append([]int{}, vs...)
			sort.Sort(sort.Reverse(sort.IntSlice(flushValues)))
			flushValues = flushValues[:5]
		}
	}

	straightHigh, isStraight := straightHighCard(values)

	if isFlush {
		if flushHigh, ok := straightHighCard(flushValues); ok {
			if flushHigh == 14 && !containsWheel(flushValues) {
				return RoyalFlush, []int{flushHigh}
			}
			return StraightFlush, []int{flushHigh}
		}
	}

	// group counts: (count, value) tuples descending.
	type group struct{ count, value int }
	var groups []group
	for v, c := range byValue {
		groups = append(groups, group{count: c, value: v})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].value > groups[j].value
	})

	switch {
	case groups[0].count == 4:
		kicker := bestKicker(values, groups[0].value)
		return FourOfAKind, []int{groups[0].value, kicker}
	case groups[0].count == 3 && len(groups) > 1 && groups[1].count >= 2:
		return FullHouse, []int{groups[0].value, groups[1].value}
	case isFlush:
		return Flush, flushValues
	case isStraight:
		return Straight, []int{straightHigh}
	case groups[0].count == 3:
		kickers := topKickers(values, map[int]bool{groups[0].value: true}, 2)
		return ThreeOfAKind, append([]int{groups[0].value}, kickers...)
	case groups[0].count == 2 && len(groups) > 1 && groups[1].count == 2:
		hi, lo := groups[0].value, groups[1].value
		if lo > hi {
			hi, lo = lo, hi
		}
		kicker := topKickers(values, map[int]bool{hi: true, lo: true}, 1)
		return TwoPair, append([]int{hi, lo}, kicker...)
	case groups[0].count == 2:
		kickers := topKickers(values, map[int]bool{groups[0].value: true}, 3)
		return Pair, append([]int{groups[0].value}, kickers...)
	default:
		return HighCard, values[:5]
	}
}

func bestKicker(values []int, exclude int) int {
	for _, v := range values {
		if v != exclude {
			return v
		}
	}
	return 0
}

func topKickers(values []int, exclude map[int]bool, n int) []int {
	var out []int
	for _, v := range values {
		if exclude[v] {
			continue
		}
		out = append(out, v)
		if len(out) == n {
			break
		}
	}
	return out
}

func containsWheel(values []int) bool {
	need := map[int]bool{14: false, 2: false, 3: false, 4: false, 5: false}
	for _, v := range values {
		if _, ok := need[v]; ok {
			need[v] = true
		}
	}
	for _, found := range need {
		if !found {
			return false
		}
	}
	return true
}

// straightHighCard returns the high card of a straight within the given
// descending, deduplicated-by-search values, treating A-2-3-4-5 (the wheel)
// as a straight whose high card is 5 (spec.md §4.1).
func straightHighCard(values []int) (int, bool) {
	seen := map[int]bool{}
	var uniq []int
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			uniq = append(uniq, v)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(uniq)))

	for i := 0; i+4 < len(uniq); i++ {
		if uniq[i]-uniq[i+4] == 4 {
			return uniq[i], true
		}
	}
	// wheel: A,5,4,3,2
	hasAce := seen[14]
	if hasAce && seen[2] && seen[3] && seen[4] && seen[5] {
		return 5, true
	}
	return 0, false
}

// Compare returns -1/0/+1 comparing two rankings by "category value, then
// descending sequence of rank values" (spec.md §4.1). It is total,
// antisymmetric and transitive, and returns 0 exactly on genuine ties.
func Compare(a, b Ranking) int {
	if a.Category != b.Category {
		if a.Category > b.Category {
			return 1
		}
		return -1
	}
	for i := 0; i < len(a.Sequence) && i < len(b.Sequence); i++ {
		if a.Sequence[i] != b.Sequence[i] {
			if a.Sequence[i] > b.Sequence[i] {
				return 1
			}
			return -1
		}
	}
	if len(a.Sequence) != len(b.Sequence) {
		if len(a.Sequence) > len(b.Sequence) {
			return 1
		}
		return -1
	}
	return 0
}
