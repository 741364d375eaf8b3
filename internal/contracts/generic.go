package contracts

import (
	"encoding/json"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// methodSelector returns the first 4 bytes of keccak256(signature), the same
// selector computation go-ethereum's bound contracts and the teacher's
// abigen-generated code perform.
func methodSelector(signature string) []byte {
	return crypto.Keccak256([]byte(signature))[:4]
}

// typesFromSignature extracts the ordered parameter types from a Solidity
// signature like "updateConfig(uint256,address)", matching
// original_source/src/scheduled_tasks/models.rs's TargetFunction.function,
// which stores the full signature string including parameter types.
func typesFromSignature(signature string) ([]abi.Type, error) {
	open := strings.Index(signature, "(")
	shut := strings.LastIndex(signature, ")")
	if open < 0 || shut < open {
		return nil, errors.Errorf("malformed function signature %q", signature)
	}
	inner := strings.TrimSpace(signature[open+1 : shut])
	if inner == "" {
		return nil, nil
	}

	parts := strings.Split(inner, ",")
	types := make([]abi.Type, 0, len(parts))
	for _, p := range parts {
		t, err := abiTypeFor(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

// encodeArgs ABI-encodes args against argTypes, converting each value (as
// decoded from YAML/JSON — numbers, strings, bools) into the Go
// representation go-ethereum's abi.Arguments.Pack expects.
func encodeArgs(argTypes []abi.Type, args []interface{}) ([]byte, error) {
	if len(argTypes) != len(args) {
		return nil, errors.Errorf("expected %d arguments, got %d", len(argTypes), len(args))
	}

	arguments := make(abi.Arguments, len(argTypes))
	converted := make([]interface{}, len(argTypes))
	for i, t := range argTypes {
		arguments[i] = abi.Argument{Type: t}
		v, err := convertValue(t, args[i])
		if err != nil {
			return nil, errors.Wrapf(err, "argument %d", i)
		}
		converted[i] = v
	}

	return arguments.Pack(converted...)
}

// decodeSingle decodes a single return value of the given type from raw
// ABI-encoded output.
func decodeSingle(t abi.Type, raw []byte) (interface{}, error) {
	arguments := abi.Arguments{{Type: t}}
	values, err := arguments.Unpack(raw)
	if err != nil {
		return nil, errors.Wrap(err, "decoding ABI output")
	}
	if len(values) != 1 {
		return nil, errors.Errorf("expected 1 return value, got %d", len(values))
	}
	return values[0], nil
}

// convertValue maps a config.Parameter's dynamically-typed value (as decoded
// from YAML: float64, string, bool, []interface{}) onto the Go
// representation go-ethereum's ABI packer requires for t.
func convertValue(t abi.Type, v interface{}) (interface{}, error) {
	switch t.T {
	case abi.UintTy, abi.IntTy:
		return toBigInt(v)
	case abi.AddressTy:
		s, ok := v.(string)
		if !ok {
			return nil, errors.Errorf("expected hex string for address, got %T", v)
		}
		return common.HexToAddress(s), nil
	case abi.BoolTy:
		b, ok := v.(bool)
		if !ok {
			return nil, errors.Errorf("expected bool, got %T", v)
		}
		return b, nil
	case abi.StringTy:
		s, ok := v.(string)
		if !ok {
			return nil, errors.Errorf("expected string, got %T", v)
		}
		return s, nil
	case abi.BytesTy, abi.FixedBytesTy:
		s, ok := v.(string)
		if !ok {
			return nil, errors.Errorf("expected hex string for bytes, got %T", v)
		}
		return common.FromHex(s), nil
	case abi.SliceTy, abi.ArrayTy:
		return convertSlice(t, v)
	default:
		return nil, errors.Errorf("unsupported ABI type %s", t.String())
	}
}

// convertSlice accepts either a literal JSON array or a JSON-encoded string
// of one (e.g. a YAML scalar `'["0xabc...", "0xdef..."]'`), matching
// original_source/src/scheduled_tasks/executor.rs's "address[]" arm, which
// tries value.as_str() + serde_json::from_str before falling back to
// value.as_array().
func convertSlice(t abi.Type, v interface{}) (interface{}, error) {
	if s, ok := v.(string); ok {
		var decoded []interface{}
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return nil, errors.Wrapf(err, "parsing %s from JSON string", t.String())
		}
		v = decoded
	}

	raw, ok := v.([]interface{})
	if !ok {
		return nil, errors.Errorf("expected array for %s, got %T", t.String(), v)
	}

	elemType := *t.Elem
	switch elemType.T {
	case abi.AddressTy:
		out := make([]common.Address, len(raw))
		for i, item := range raw {
			s, ok := item.(string)
			if !ok {
				return nil, errors.Errorf("expected hex string for address[%d]", i)
			}
			out[i] = common.HexToAddress(s)
		}
		return out, nil
	case abi.UintTy, abi.IntTy:
		out := make([]*big.Int, len(raw))
		for i, item := range raw {
			n, err := toBigInt(item)
			if err != nil {
				return nil, errors.Wrapf(err, "element %d", i)
			}
			out[i] = n
		}
		return out, nil
	case abi.StringTy:
		out := make([]string, len(raw))
		for i, item := range raw {
			s, ok := item.(string)
			if !ok {
				return nil, errors.Errorf("expected string for element %d", i)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, errors.Errorf("unsupported slice element type %s", elemType.String())
	}
}

func toBigInt(v interface{}) (*big.Int, error) {
	switch n := v.(type) {
	case *big.Int:
		return n, nil
	case float64:
		return big.NewInt(int64(n)), nil
	case int:
		return big.NewInt(int64(n)), nil
	case int64:
		return big.NewInt(n), nil
	case string:
		digits, base := n, 10
		if strings.HasPrefix(n, "0x") || strings.HasPrefix(n, "0X") {
			digits, base = n[2:], 16
		}
		bi, ok := new(big.Int).SetString(digits, base)
		if !ok {
			return nil, errors.Errorf("cannot parse %q as integer", n)
		}
		return bi, nil
	default:
		return nil, errors.Errorf("cannot convert %T to integer", v)
	}
}

// assign copies an ABI-decoded value into a caller-supplied pointer,
// bridging go-ethereum's dynamically typed Unpack results into the concrete
// pointer types the FluxAggregator read methods expose.
func assign(out interface{}, value interface{}) error {
	switch dst := out.(type) {
	case **big.Int:
		v, ok := value.(*big.Int)
		if !ok {
			return errors.Errorf("expected *big.Int, got %T", value)
		}
		*dst = v
	case *uint8:
		v, ok := value.(uint8)
		if !ok {
			return errors.Errorf("expected uint8, got %T", value)
		}
		*dst = v
	default:
		return errors.Errorf("unsupported assignment target %T", out)
	}
	return nil
}
