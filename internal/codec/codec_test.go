package codec

import (
	"testing"

	"github.com/behrlich/go-swx/match"
	"github.com/stretchr/testify/require"
)

func ipv4Schema() Schema {
	return Schema{
		Fields: []match.Field{{Offset: 0, Size: 4, Kind: match.FieldExact}},
		Actions: []ActionDef{
			{Name: "fwd", ID: 1, Args: []ActionArg{{Name: "port", Size: 2}}},
		},
	}
}

func TestParseTextRoundTrip(t *testing.T) {
	schema := ipv4Schema()
	line := "match 0x0a000001/0xffffffff priority 10 action fwd port N(0x0007)"

	e, blank, err := Parse(line, schema)
	require.NoError(t, err)
	require.False(t, blank)
	require.Equal(t, []byte{0x0a, 0x00, 0x00, 0x01}, e.Key)
	require.Equal(t, []byte{0xff, 0xff, 0xff, 0xff}, e.KeyMask)
	require.EqualValues(t, 10, e.KeyPriority)
	require.Equal(t, 1, e.ActionID)
	require.Equal(t, []byte{0x00, 0x07}, e.ActionData)

	emitted := Emit(e, schema)
	e2, blank2, err2 := Parse(emitted, schema)
	require.NoError(t, err2)
	require.False(t, blank2)
	require.Equal(t, e.Key, e2.Key)
	require.Equal(t, e.KeyMask, e2.KeyMask)
	require.Equal(t, e.KeyPriority, e2.KeyPriority)
	require.Equal(t, e.ActionID, e2.ActionID)
	require.Equal(t, e.ActionData, e2.ActionData)
}

func TestParseBlankAndCommentLines(t *testing.T) {
	schema := ipv4Schema()
	for _, line := range []string{"", "   ", "# a comment", "; also a comment", "// slash comment"} {
		e, blank, err := Parse(line, schema)
		require.NoError(t, err)
		require.True(t, blank)
		require.Nil(t, e)
	}
}

func TestParseTrailingCommentStripped(t *testing.T) {
	schema := ipv4Schema()
	line := "match 0x0a000001 priority 5 action fwd port H(0x1234) # trailing note"
	e, blank, err := Parse(line, schema)
	require.NoError(t, err)
	require.False(t, blank)
	require.EqualValues(t, 5, e.KeyPriority)
	// H() is host/little-endian: low byte first.
	require.Equal(t, []byte{0x34, 0x12}, e.ActionData)
}

func TestParseHostVsNetworkEndianness(t *testing.T) {
	schema := ipv4Schema()
	netLine := "match 0x0a000001 priority 0 action fwd port N(0x0102)"
	hostLine := "match 0x0a000001 priority 0 action fwd port H(0x0102)"

	eNet, _, err := Parse(netLine, schema)
	require.NoError(t, err)
	eHost, _, err := Parse(hostLine, schema)
	require.NoError(t, err)

	require.Equal(t, []byte{0x01, 0x02}, eNet.ActionData)
	require.Equal(t, []byte{0x02, 0x01}, eHost.ActionData)
}

func TestParseUnknownActionRejected(t *testing.T) {
	schema := ipv4Schema()
	_, _, err := Parse("match 0x0a000001 priority 0 action bogus port H(0x01)", schema)
	require.ErrorIs(t, err, ErrUnknownAction)
}

func TestParseWrongArgNameRejected(t *testing.T) {
	schema := ipv4Schema()
	_, _, err := Parse("match 0x0a000001 priority 0 action fwd nope H(0x01)", schema)
	require.ErrorIs(t, err, ErrMalformedEntry)
}

func TestParseMissingMatchForNonStubTableRejected(t *testing.T) {
	schema := ipv4Schema()
	_, _, err := Parse("priority 0 action fwd port H(0x01)", schema)
	require.ErrorIs(t, err, ErrMalformedEntry)
}

func TestParseStubTableRejectsMatchClause(t *testing.T) {
	schema := Schema{Actions: []ActionDef{{Name: "noop", ID: 0}}}
	_, _, err := Parse("match 0x01 priority 0 action noop", schema)
	require.ErrorIs(t, err, ErrMalformedEntry)
}

func TestParseStubTableNoFields(t *testing.T) {
	schema := Schema{Actions: []ActionDef{{Name: "noop", ID: 0}}}
	e, blank, err := Parse("action noop", schema)
	require.NoError(t, err)
	require.False(t, blank)
	require.Nil(t, e.Key)
}

func TestEmitUnknownActionID(t *testing.T) {
	schema := ipv4Schema()
	e := &match.Entry{Key: []byte{1, 2, 3, 4}, ActionID: 99}
	out := Emit(e, schema)
	require.Contains(t, out, "unknown")
}
