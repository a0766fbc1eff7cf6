package provider

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/AlhasanIQ/mcp-clarify/config"
	"github.com/AlhasanIQ/mcp-clarify/contract"
)

// ErrUnsupportedCall is returned by a channel for a call shape its dialect
// does not speak. The negotiator treats it like any other attempt failure.
var ErrUnsupportedCall = errors.New("unsupported elicitation call")

// Dialect is the set of call shapes one channel accepts.
type Dialect struct {
	TextKeys   []contract.TextKey
	SchemaArgs []contract.SchemaArg
	Encodings  []contract.SchemaEncoding
}

func DialectFromConfig(c config.DialectConfig) (Dialect, error) {
	var d Dialect
	for _, raw := range c.TextKeys {
		k := contract.TextKey(normalizeName(raw))
		switch k {
		case contract.TextKeyMessage, contract.TextKeyPrompt:
			d.TextKeys = append(d.TextKeys, k)
		default:
			return Dialect{}, fmt.Errorf("unknown text key %q", raw)
		}
	}
	for _, raw := range c.SchemaArgs {
		a := contract.SchemaArg(normalizeName(raw))
		switch a {
		case contract.ArgResponseSchema, contract.ArgSchema, contract.ArgResponseType,
			contract.ArgResponseModel, contract.ArgPositional:
			d.SchemaArgs = append(d.SchemaArgs, a)
		default:
			return Dialect{}, fmt.Errorf("unknown schema argument %q", raw)
		}
	}
	for _, raw := range c.Encodings {
		e := contract.SchemaEncoding(normalizeName(raw))
		switch e {
		case contract.EncodingJSON, contract.EncodingChoiceType, contract.EncodingAnswerType, contract.EncodingNone:
			d.Encodings = append(d.Encodings, e)
		default:
			return Dialect{}, fmt.Errorf("unknown schema encoding %q", raw)
		}
	}
	if len(d.TextKeys) == 0 {
		return Dialect{}, fmt.Errorf("dialect accepts no text key")
	}
	return d, nil
}

// Check rejects calls outside the dialect with an error worded the way a
// client library rejects an unexpected argument.
func (d Dialect) Check(call contract.ElicitCall) error {
	if !slices.Contains(d.TextKeys, call.TextKey) {
		return fmt.Errorf("%w: unexpected keyword argument %q", ErrUnsupportedCall, call.TextKey)
	}
	if !slices.Contains(d.Encodings, call.Encoding) {
		if call.Encoding == contract.EncodingNone {
			return fmt.Errorf("%w: a schema is required", ErrUnsupportedCall)
		}
		return fmt.Errorf("%w: schema encoding %q not supported", ErrUnsupportedCall, call.Encoding)
	}
	if call.Encoding == contract.EncodingNone {
		return nil
	}
	if !slices.Contains(d.SchemaArgs, call.Arg) {
		if call.Arg == contract.ArgPositional {
			return fmt.Errorf("%w: unexpected positional argument", ErrUnsupportedCall)
		}
		return fmt.Errorf("%w: unexpected keyword argument %q", ErrUnsupportedCall, call.Arg)
	}
	return nil
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
