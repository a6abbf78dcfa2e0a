package grind

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

var (
	ErrUnknownCriteria = errors.New("unknown criteria")
	ErrUnknownGrinder  = errors.New("unknown grinder")
)

var grinders = map[string]Grinder{
	"sequence": IncrementSequence,
	"opreturn": AppendOpReturn,
}

// ParseGrinder looks up a built-in grinder. The empty name is "sequence".
func ParseGrinder(name string) (Grinder, error) {
	if name == "" {
		name = "sequence"
	}
	g, ok := grinders[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownGrinder, "%q", name)
	}
	return g, nil
}

// GrinderNames lists the built-in grinders.
func GrinderNames() []string {
	names := make([]string, 0, len(grinders))
	for name := range grinders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Spec is a criteria in serializable form, as found in job files.
type Spec struct {
	Kind   string                 `json:"kind"`
	Params map[string]interface{} `json:"params,omitempty"`
}

func (s Spec) String() string {
	if len(s.Params) == 0 {
		return s.Kind
	}
	keys := make([]string, 0, len(s.Params))
	for k := range s.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := s.Kind
	for i, k := range keys {
		sep := ","
		if i == 0 {
			sep = ":"
		}
		out += fmt.Sprintf("%s%s=%s", sep, k, formatParam(s.Params[k]))
	}
	return out
}

// formatParam prints JSON numbers, which decode as float64, without an
// exponent.
func formatParam(v interface{}) string {
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

type hexParams struct {
	Value string `mapstructure:"value"`
}

type targetParams struct {
	Bits string `mapstructure:"bits"`
}

type equalsParams struct {
	Hash string `mapstructure:"hash"`
}

// ParseCriteria builds a criteria from its kind and loosely typed params.
//
//	even                      last displayed byte even
//	prefix  value=<hex>       displayed id starts with value
//	suffix  value=<hex>       displayed id ends with value
//	target  bits=<compact>    id below the compact target (hex or decimal)
//	equals  hash=<txid>       id equals hash
func ParseCriteria(kind string, params map[string]interface{}) (Criteria, error) {
	switch kind {
	case "even":
		return EvenLastByte, nil

	case "prefix", "suffix":
		var p hexParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		if p.Value == "" {
			return nil, errors.Errorf("%s requires a value", kind)
		}
		if _, err := hex.DecodeString(evenLength(p.Value)); err != nil {
			return nil, errors.Wrapf(err, "%s value %q", kind, p.Value)
		}
		if kind == "prefix" {
			return HexPrefix(p.Value), nil
		}
		return HexSuffix(p.Value), nil

	case "target":
		var p targetParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		bits, err := strconv.ParseUint(p.Bits, 0, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "target bits %q", p.Bits)
		}
		// A set sign bit makes the target negative and unreachable.
		if bits&0x00800000 != 0 {
			return nil, errors.Errorf("target bits %q encode a negative target", p.Bits)
		}
		return BelowTarget(uint32(bits)), nil

	case "equals":
		var p equalsParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		if p.Hash == "" {
			return nil, errors.New("equals requires a hash")
		}
		h, err := chainhash.NewHashFromStr(p.Hash)
		if err != nil {
			return nil, errors.Wrapf(err, "equals hash %q", p.Hash)
		}
		return Equals(*h), nil
	}
	return nil, errors.Wrapf(ErrUnknownCriteria, "%q", kind)
}

// Parse is ParseCriteria on a Spec.
func (s Spec) Parse() (Criteria, error) {
	return ParseCriteria(s.Kind, s.Params)
}

func decodeParams(params map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return errors.Wrap(err, "building params decoder")
	}
	if err := dec.Decode(params); err != nil {
		return errors.Wrap(err, "decoding criteria params")
	}
	return nil
}

func evenLength(s string) string {
	if len(s)%2 == 1 {
		return s + "0"
	}
	return s
}
