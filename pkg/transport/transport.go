// Package transport defines the wire protocol of spec.md §6: a closed set
// of inbound and outbound tags with typed JSON payloads, carried over
// gorilla/websocket connections. Unknown tags are rejected at this
// boundary, never reaching the Room Controller.
//
// Grounded on the teacher's pkg/server/events_payloads.go (one payload type
// per event tag, a Kind()/discriminator method per payload), replacing the
// teacher's gRPC/protobuf wire format — which this module cannot regenerate
// without running protoc — with gorilla/websocket + tagged JSON envelopes,
// a substitution already present across the example pack (several retrieved
// repos use gorilla/websocket for exactly this kind of bidirectional event
// stream).
package transport

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// maxChatLength is the length cap chat:send payloads are sanitised against
// (spec.md §4.5: "chat(message): sanitised (trim, length-cap 200 chars)").
const maxChatLength = 200

// SanitizeChat trims surrounding whitespace and truncates to the length
// cap; callers reject empty results as a Validation error rather than
// broadcasting a blank message.
func SanitizeChat(message string) string {
	trimmed := strings.TrimSpace(message)
	if runes := []rune(trimmed); len(runes) > maxChatLength {
		trimmed = string(runes[:maxChatLength])
	}
	return trimmed
}

// InboundTag is one of the closed set of client-to-server message tags
// (spec.md §6).
type InboundTag string

const (
	TableJoin          InboundTag = "table:join"
	TableLeave         InboundTag = "table:leave"
	TableSitOut        InboundTag = "table:sit-out"
	TableSitIn         InboundTag = "table:sit-in"
	TableAddChips      InboundTag = "table:add-chips"
	GameAction         InboundTag = "game:action"
	GameShowCards      InboundTag = "game:show-cards"
	MentalPokerCommit  InboundTag = "mental-poker:commit"
	MentalPokerShuffle InboundTag = "mental-poker:shuffle"
	MentalPokerReveal  InboundTag = "mental-poker:reveal-key"
	ChatSend           InboundTag = "chat:send"
)

// OutboundTag is one of the closed set of server-to-client message tags
// (spec.md §6).
type OutboundTag string

const (
	GameState                  OutboundTag = "game:state"
	GameStarted                OutboundTag = "game:started"
	GamePhaseChange            OutboundTag = "game:phase-change"
	GameTurn                   OutboundTag = "game:turn"
	GamePlayerAction           OutboundTag = "game:player-action"
	GameHandResult             OutboundTag = "game:hand-result"
	PlayerCards                OutboundTag = "player:cards"
	MentalPokerPhase           OutboundTag = "mental-poker:phase"
	MentalPokerCommitmentRecv  OutboundTag = "mental-poker:commitment-received"
	MentalPokerShuffleTurn     OutboundTag = "mental-poker:shuffle-turn"
	MentalPokerShuffleComplete OutboundTag = "mental-poker:shuffle-complete"
	MentalPokerRequestKey      OutboundTag = "mental-poker:request-key"
	MentalPokerKeyRevealed     OutboundTag = "mental-poker:key-revealed"
	MentalPokerCardRevealed    OutboundTag = "mental-poker:card-revealed"
	TableChat                  OutboundTag = "table:chat"
	ErrorTag                   OutboundTag = "error"
	NotificationTag            OutboundTag = "notification"
)

// InboundEnvelope is the generic shape every inbound message arrives in:
// a tag plus a raw payload decoded according to that tag.
type InboundEnvelope struct {
	Tag     InboundTag      `json:"tag"`
	Payload json.RawMessage `json:"payload"`
}

// UnknownTagError is returned when a message's tag is not in the closed
// inbound set, per spec.md §9 Design Note "define a closed set of inbound
// and outbound tags ... reject unknown tags at the transport boundary".
type UnknownTagError struct{ Tag string }

func (e *UnknownTagError) Error() string { return fmt.Sprintf("transport: unknown inbound tag %q", e.Tag) }

var validInboundTags = map[InboundTag]bool{
	TableJoin: true, TableLeave: true, TableSitOut: true, TableSitIn: true, TableAddChips: true,
	GameAction: true, GameShowCards: true,
	MentalPokerCommit: true, MentalPokerShuffle: true, MentalPokerReveal: true,
	ChatSend: true,
}

// ValidateTag rejects anything outside the closed inbound tag set.
func ValidateTag(tag InboundTag) error {
	if !validInboundTags[tag] {
		return &UnknownTagError{Tag: string(tag)}
	}
	return nil
}

// OutboundEnvelope is the generic shape every outbound message is framed
// in before being written to the websocket connection.
type OutboundEnvelope struct {
	Tag     OutboundTag `json:"tag"`
	Payload interface{} `json:"payload"`
}

// Reply is the generic acknowledgement shape every inbound message gets
// (spec.md §6: "each accepts a reply carrying {success, error?, ...}").
type Reply struct {
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Fields  interface{} `json:"fields,omitempty"`
}

// ChipAmount is an arbitrary-precision chip quantity, represented as a
// decimal string on the wire and a native int64 internally (spec.md §9
// Design Note: "BigInt arithmetic on the wire vs. native on the inside").
// int64 is sufficient for any realistic chip count (> 9*10^18, larger than
// the total circulating supply of any chip ledger this server would back),
// so no arbitrary-precision math package is needed internally — only the
// wire encoding must look like one.
type ChipAmount int64

func (c ChipAmount) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatInt(int64(c), 10))
}

func (c *ChipAmount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("transport: chip amount must be a decimal string: %w", err)
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("transport: invalid chip amount %q: %w", s, err)
	}
	*c = ChipAmount(v)
	return nil
}
