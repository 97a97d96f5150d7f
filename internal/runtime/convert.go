package runtime

import (
	"context"
	"unicode/utf8"

	"github.com/wrbnet/wrbhost/internal/wrberr"
)

// BuffToUTF8 converts a byte buffer from the script boundary to a UTF-8
// string, failing on invalid sequences.
func BuffToUTF8(data []byte) (string, *wrberr.Error) {
	if !utf8.Valid(data) {
		return "", wrberr.New(wrberr.CodeBuffToUTF8Failure,
			"buffer of %d bytes is not valid utf-8", len(data))
	}
	return string(data), nil
}

// ASCIIToUTF8 converts a printable-ASCII buffer to a UTF-8 string. Bytes
// outside the printable range (plus tab/newline/carriage return) fail the
// whole conversion.
func ASCIIToUTF8(data []byte) (string, *wrberr.Error) {
	for i, b := range data {
		if b >= 0x20 && b < 0x7f {
			continue
		}
		if b == '\t' || b == '\n' || b == '\r' {
			continue
		}
		return "", wrberr.New(wrberr.CodeASCIIToUTF8Failure,
			"byte 0x%02x at offset %d is not printable ascii", b, i)
	}
	return string(data), nil
}

func (r *Runtime) buffToUTF8(_ context.Context, params Params) *Result {
	data, ok := params.Bytes("data")
	if !ok {
		return failuref(wrberr.CodeBuffToUTF8Failure, "buff_to_utf8: data required")
	}
	text, werr := BuffToUTF8(data)
	if werr != nil {
		return failure(werr)
	}
	return success(map[string]interface{}{"text": text})
}

func (r *Runtime) asciiToUTF8(_ context.Context, params Params) *Result {
	data, ok := params.Bytes("data")
	if !ok {
		return failuref(wrberr.CodeASCIIToUTF8Failure, "ascii_to_utf8: data required")
	}
	text, werr := ASCIIToUTF8(data)
	if werr != nil {
		return failure(werr)
	}
	return success(map[string]interface{}{"text": text})
}

// readonlyCall proxies a read-only contract call to the node. Transport
// failures surface as ReadonlyCallFailure with the node's message.
func (r *Runtime) readonlyCall(ctx context.Context, params Params) *Result {
	if r.readonly == nil {
		return failuref(wrberr.CodeReadonlyCallFailure, "no read-only call facility")
	}
	contract, ok := params.String("contract")
	if !ok {
		return failuref(wrberr.CodeReadonlyCallFailure, "readonly_call: contract required")
	}
	function, ok := params.String("function")
	if !ok {
		return failuref(wrberr.CodeReadonlyCallFailure, "readonly_call: function required")
	}
	args, _ := params.Strings("args")

	value, err := r.readonly.Call(ctx, contract, function, args)
	if err != nil {
		return failure(wrberr.Wrap(wrberr.CodeReadonlyCallFailure, err))
	}
	return success(map[string]interface{}{"value": value})
}
