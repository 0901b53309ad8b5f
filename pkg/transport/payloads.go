package transport

import (
	"time"

	"github.com/opencardroom/pokerd/pkg/card"
)

// ---------- Inbound payloads ----------

type JoinPayload struct {
	Wallet      string     `json:"wallet"`
	DesiredSeat int        `json:"desiredSeat"`
	BuyIn       ChipAmount `json:"buyIn"`
}

type ActionPayload struct {
	Type   string     `json:"type"`
	Amount ChipAmount `json:"amount"`
}

type AddChipsPayload struct {
	Amount ChipAmount `json:"amount"`
}

type ChatPayload struct {
	Message string `json:"message"`
}

type MentalPokerCommitPayload struct {
	Commitment string `json:"commitment"` // hex hash
}

type MentalPokerShufflePayload struct {
	Deck []string `json:"deck"` // opaque hex-encoded ciphertexts, length 52
}

type MentalPokerRevealPayload struct {
	CardPosition int    `json:"cardPosition"`
	Key          string `json:"key"`  // hex
	Salt         string `json:"salt"` // hex
}

// ---------- Outbound payloads ----------

type SeatPublicView struct {
	SeatIndex   int        `json:"seatIndex"`
	Wallet      string     `json:"wallet"`
	DisplayName string     `json:"displayName"`
	Stack       ChipAmount `json:"stack"`
	CurrentBet  ChipAmount `json:"currentBet"`
	Folded      bool       `json:"folded"`
	AllIn       bool       `json:"allIn"`
	SittingOut  bool       `json:"sittingOut"`
	IsDealer    bool       `json:"isDealer"`
}

type GameStatePayload struct {
	Phase          string           `json:"phase"`
	Pot            ChipAmount       `json:"pot"`
	CurrentBet     ChipAmount       `json:"currentBet"`
	DealerSeat     int              `json:"dealerSeat"`
	TurnSeat       int              `json:"turnSeat"`
	HandNumber     int              `json:"handNumber"`
	Seats          []SeatPublicView `json:"seats"`
	CommunityCards []card.Card      `json:"communityCards"`
}

type GameStartedPayload struct {
	HandNumber int `json:"handNumber"`
}

type GamePhaseChangePayload struct {
	Phase          string      `json:"phase"`
	CommunityCards []card.Card `json:"communityCards"`
}

type GameTurnPayload struct {
	SeatIndex        int      `json:"seatId"`
	TimeRemainingSec int      `json:"timeRemaining"`
	AvailableActions []string `json:"availableActions"`
}

type PlayerActionPayload struct {
	SeatIndex int        `json:"seatId"`
	Type      string     `json:"type"`
	Amount    ChipAmount `json:"amount"`
	Timestamp time.Time  `json:"timestamp"`
}

type WinnerView struct {
	SeatIndex int        `json:"seatIndex"`
	Amount    ChipAmount `json:"amount"`
}

type PotView struct {
	Amount   ChipAmount `json:"amount"`
	SeatsIn  []int      `json:"seatsIn"`
}

type HandResultPayload struct {
	Winners []WinnerView `json:"winners"`
	Pots    []PotView    `json:"pots"`
}

type PlayerCardsPayload struct {
	SeatIndex int         `json:"seatIndex"`
	Cards     []card.Card `json:"cards"`
}

type MentalPokerPhasePayload struct {
	Phase          string `json:"phase"`
	CurrentShuffler *int  `json:"currentShuffler,omitempty"`
}

type MentalPokerCommitmentReceivedPayload struct {
	PlayerSeat int `json:"playerId"`
	Count      int `json:"count"`
	Total      int `json:"total"`
}

type MentalPokerShuffleTurnPayload struct {
	EncryptedDeck []string `json:"encryptedDeck"`
}

type MentalPokerShuffleCompletePayload struct {
	EncryptedDeck []string `json:"encryptedDeck"`
}

type MentalPokerRequestKeyPayload struct {
	CardPosition int  `json:"cardPosition"`
	CardType     string `json:"cardType"`
	RecipientID  *int   `json:"recipientId,omitempty"`
}

type MentalPokerKeyRevealedPayload struct {
	PlayerSeat    int   `json:"playerId"`
	CardPosition  int   `json:"cardPosition"`
	Complete      bool  `json:"complete"`
	PlayersNeeded []int `json:"playersNeeded"`
}

type MentalPokerCardRevealedPayload struct {
	CardPosition int    `json:"cardPosition"`
	CardType     string `json:"cardType"`
	RecipientID  *int   `json:"recipientId,omitempty"`
}

type ChatBroadcastPayload struct {
	PlayerSeat int       `json:"playerId"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type NotificationPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
