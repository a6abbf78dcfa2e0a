package grind

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustHash(t *testing.T, s string) chainhash.Hash {
	t.Helper()
	h, err := chainhash.NewHashFromStr(s)
	require.NoError(t, err)
	return *h
}

func TestCriteria(t *testing.T) {
	evenID := mustHash(t, "00000000000000000000000000000000000000000000000000000000000000a2")
	oddID := mustHash(t, "ff000000000000000000000000000000000000000000000000000000000000a3")

	tests := []struct {
		name     string
		criteria Criteria
		hash     chainhash.Hash
		want     bool
	}{
		{"even accepts", EvenLastByte, evenID, true},
		{"even rejects", EvenLastByte, oddID, false},
		{"prefix", HexPrefix("0000"), evenID, true},
		{"prefix upper case", HexPrefix("FF"), oddID, true},
		{"prefix mismatch", HexPrefix("00"), oddID, false},
		{"suffix", HexSuffix("a3"), oddID, true},
		{"suffix mismatch", HexSuffix("a3"), evenID, false},
		{"below genesis target", BelowTarget(0x1d00ffff), evenID, true},
		{"above genesis target", BelowTarget(0x1d00ffff), oddID, false},
		{"equals", Equals(oddID), oddID, true},
		{"equals other", Equals(oddID), evenID, false},
		{"not", Not(EvenLastByte), oddID, true},
		{"all", All(EvenLastByte, HexPrefix("00")), evenID, true},
		{"all one fails", All(EvenLastByte, HexPrefix("ff")), evenID, false},
		{"all empty", All(), oddID, true},
		{"any", Any(EvenLastByte, HexPrefix("ff")), oddID, true},
		{"any empty", Any(), oddID, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.criteria(tt.hash))
		})
	}
}

func TestParseCriteria(t *testing.T) {
	id := mustHash(t, "00000000000000000000000000000000000000000000000000000000000000a2")

	tests := []struct {
		name   string
		kind   string
		params map[string]interface{}
		want   bool
	}{
		{"even", "even", nil, true},
		{"prefix", "prefix", map[string]interface{}{"value": "000"}, true},
		{"suffix", "suffix", map[string]interface{}{"value": "a3"}, false},
		{"target hex bits", "target", map[string]interface{}{"bits": "0x1d00ffff"}, true},
		{"target numeric bits", "target", map[string]interface{}{"bits": float64(0x1d00ffff)}, true},
		{"equals", "equals", map[string]interface{}{"hash": id.String()}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseCriteria(tt.kind, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c(id))
		})
	}
}

func TestParseCriteria_Errors(t *testing.T) {
	tests := []struct {
		name   string
		kind   string
		params map[string]interface{}
	}{
		{"unknown kind", "nonce", nil},
		{"bad hex prefix", "prefix", map[string]interface{}{"value": "zz"}},
		{"unused param", "prefix", map[string]interface{}{"value": "00", "extra": 1}},
		{"missing prefix value", "prefix", nil},
		{"missing hash", "equals", map[string]interface{}{}},
		{"bad bits", "target", map[string]interface{}{"bits": "lots"}},
		{"negative target", "target", map[string]interface{}{"bits": "0x1d80ffff"}},
		{"bad hash", "equals", map[string]interface{}{"hash": "xyz"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCriteria(tt.kind, tt.params)
			assert.Error(t, err)
		})
	}

	_, err := ParseCriteria("nonce", nil)
	assert.ErrorIs(t, err, ErrUnknownCriteria)
}

func TestParseGrinder(t *testing.T) {
	for _, name := range []string{"", "sequence", "opreturn"} {
		g, err := ParseGrinder(name)
		require.NoError(t, err, name)
		assert.NotNil(t, g)
	}

	_, err := ParseGrinder("nonce")
	assert.ErrorIs(t, err, ErrUnknownGrinder)

	assert.Equal(t, []string{"opreturn", "sequence"}, GrinderNames())
}

func TestSpecString(t *testing.T) {
	assert.Equal(t, "even", Spec{Kind: "even"}.String())
	assert.Equal(t, "prefix:value=00", Spec{Kind: "prefix", Params: map[string]interface{}{"value": "00"}}.String())
	assert.Equal(t, "target:a=1,bits=0x1d00ffff",
		Spec{Kind: "target", Params: map[string]interface{}{"bits": "0x1d00ffff", "a": 1}}.String())
	assert.Equal(t, "target:bits=545259519",
		Spec{Kind: "target", Params: map[string]interface{}{"bits": float64(545259519)}}.String())
	assert.Equal(t, "prefix:n=0.5", Spec{Kind: "prefix", Params: map[string]interface{}{"n": 0.5}}.String())
}
