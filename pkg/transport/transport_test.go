package transport

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChipAmountRoundTripsAsDecimalString(t *testing.T) {
	original := ChipAmount(123456789)
	data, err := json.Marshal(original)
	require.NoError(t, err)
	require.Equal(t, `"123456789"`, string(data))

	var decoded ChipAmount
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, original, decoded)
}

func TestChipAmountUnmarshalRejectsNonStringJSON(t *testing.T) {
	var c ChipAmount
	err := json.Unmarshal([]byte(`123`), &c)
	require.Error(t, err)
}

func TestChipAmountUnmarshalRejectsNonNumericString(t *testing.T) {
	var c ChipAmount
	err := json.Unmarshal([]byte(`"not-a-number"`), &c)
	require.Error(t, err)
}

func TestValidateTagAcceptsKnownInboundTags(t *testing.T) {
	for _, tag := range []InboundTag{
		TableJoin, TableLeave, TableSitOut, TableSitIn, TableAddChips,
		GameAction, GameShowCards,
		MentalPokerCommit, MentalPokerShuffle, MentalPokerReveal,
		ChatSend,
	} {
		require.NoError(t, ValidateTag(tag), "tag %q should validate", tag)
	}
}

func TestValidateTagRejectsUnknownTag(t *testing.T) {
	err := ValidateTag(InboundTag("table:nuke"))
	require.Error(t, err)
	var unknown *UnknownTagError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, "table:nuke", unknown.Tag)
}

func TestSanitizeChatTrimsWhitespace(t *testing.T) {
	require.Equal(t, "hello there", SanitizeChat("   hello there   "))
}

func TestSanitizeChatTruncatesAtLengthCap(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	sanitized := SanitizeChat(string(long))
	require.Len(t, sanitized, maxChatLength)
}

func TestSanitizeChatEmptyAfterTrimYieldsEmptyString(t *testing.T) {
	require.Equal(t, "", SanitizeChat("    \t\n   "))
}

func TestInboundEnvelopeDecodesRawPayload(t *testing.T) {
	raw := []byte(`{"tag":"game:action","payload":{"type":"raise","amount":"200"}}`)
	var env InboundEnvelope
	require.NoError(t, json.Unmarshal(raw, &env))
	require.Equal(t, GameAction, env.Tag)

	var p ActionPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	require.Equal(t, "raise", p.Type)
	require.EqualValues(t, 200, p.Amount)
}
