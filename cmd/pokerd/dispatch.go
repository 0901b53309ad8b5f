package main

import (
	"encoding/json"
	"fmt"

	"github.com/opencardroom/pokerd/pkg/room"
	"github.com/opencardroom/pokerd/pkg/table"
	"github.com/opencardroom/pokerd/pkg/transport"
)

// dispatch decodes one inbound envelope's tag-specific payload and invokes
// the matching Room method on the connection-bound wallet's behalf. Wallet
// identity is whatever the connection was opened with (auth is out of
// scope, spec.md §1); payload-carried wallet fields are ignored so a
// connection can never act as another wallet.
func dispatch(rm *room.Room, wallet string, conn *wsConnection, env transport.InboundEnvelope) transport.Reply {
	if err := transport.ValidateTag(env.Tag); err != nil {
		return transport.Reply{Success: false, Error: err.Error()}
	}

	var err error
	switch env.Tag {
	case transport.TableJoin:
		var p transport.JoinPayload
		if err = json.Unmarshal(env.Payload, &p); err == nil {
			_, err = rm.Join(wallet, conn, p.DesiredSeat, int64(p.BuyIn))
		}

	case transport.TableLeave:
		err = rm.Leave(wallet)

	case transport.TableSitOut:
		err = rm.SitOut(wallet)

	case transport.TableSitIn:
		err = rm.SitIn(wallet)

	case transport.TableAddChips:
		var p transport.AddChipsPayload
		if err = json.Unmarshal(env.Payload, &p); err == nil {
			err = rm.AddChips(wallet, int64(p.Amount))
		}

	case transport.GameAction:
		var p transport.ActionPayload
		if err = json.Unmarshal(env.Payload, &p); err == nil {
			err = rm.Action(wallet, table.ActionType(p.Type), int64(p.Amount))
		}

	case transport.GameShowCards:
		err = rm.ShowCards(wallet)

	case transport.MentalPokerCommit:
		var p transport.MentalPokerCommitPayload
		if err = json.Unmarshal(env.Payload, &p); err == nil {
			err = rm.MPCommit(wallet, p.Commitment)
		}

	case transport.MentalPokerShuffle:
		var p transport.MentalPokerShufflePayload
		if err = json.Unmarshal(env.Payload, &p); err == nil {
			err = rm.MPShuffle(wallet, p.Deck)
		}

	case transport.MentalPokerReveal:
		var p transport.MentalPokerRevealPayload
		if err = json.Unmarshal(env.Payload, &p); err == nil {
			err = rm.MPReveal(wallet, p.CardPosition, p.Key, p.Salt)
		}

	case transport.ChatSend:
		var p transport.ChatPayload
		if err = json.Unmarshal(env.Payload, &p); err == nil {
			err = rm.Chat(wallet, p.Message)
		}

	default:
		err = fmt.Errorf("transport: unhandled inbound tag %q", env.Tag)
	}

	if err != nil {
		return transport.Reply{Success: false, Error: err.Error()}
	}
	return transport.Reply{Success: true}
}
