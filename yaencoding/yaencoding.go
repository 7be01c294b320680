// Package yaencoding encodes small values with MessagePack, optionally as a
// base64 string. It is used for role sets stored in Redis and for the payload
// of inline buttons, which must travel as text.
//
// Example usage:
//
//	type payload struct {
//	    Sides int
//	}
//
//	data, err := yaencoding.EncodeString(payload{Sides: 6})
//	if err != nil {
//	    return err.Wrap("failed to encode button payload")
//	}
//
//	decoded, err := yaencoding.DecodeString[payload](data)
package yaencoding

import (
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/YaCodeDev/GoYaBotCore/yaerrors"
	"github.com/vmihailenco/msgpack/v5"
)

// EncodeMessagePack serializes value using the MessagePack format.
//
// Example:
//
//	data, err := yaencoding.EncodeMessagePack([]string{"admin"})
func EncodeMessagePack(value any) ([]byte, yaerrors.Error) {
	bytes, err := msgpack.Marshal(value)
	if err != nil {
		return nil, yaerrors.FromError(
			http.StatusInternalServerError,
			err,
			fmt.Sprintf("[ENCODING] failed to marshal %T using message pack format", value),
		)
	}

	return bytes, nil
}

// DecodeMessagePack decodes MessagePack data into a value of type T.
//
// Example:
//
//	roles, err := yaencoding.DecodeMessagePack[[]string](data)
func DecodeMessagePack[T any](bytes []byte) (*T, yaerrors.Error) {
	var res T

	if err := msgpack.Unmarshal(bytes, &res); err != nil {
		return nil, yaerrors.FromError(
			http.StatusInternalServerError,
			err,
			fmt.Sprintf("[ENCODING] failed to unmarshal %T from message pack format", res),
		)
	}

	return &res, nil
}

// EncodeString is EncodeMessagePack followed by raw URL-safe base64, the
// shortest text form that fits into button callback data.
func EncodeString(value any) (string, yaerrors.Error) {
	bytes, err := EncodeMessagePack(value)
	if err != nil {
		return "", err
	}

	return ToString(bytes), nil
}

// DecodeString reverses EncodeString.
func DecodeString[T any](data string) (*T, yaerrors.Error) {
	bytes, err := ToBytes(data)
	if err != nil {
		return nil, err
	}

	return DecodeMessagePack[T](bytes)
}

// ToString converts a byte slice into a raw URL-safe base64 string.
func ToString(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// ToBytes decodes a raw URL-safe base64 string into bytes.
func ToBytes(data string) ([]byte, yaerrors.Error) {
	bytes, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		return nil, yaerrors.FromError(
			http.StatusBadRequest,
			err,
			"[ENCODING] failed to decode string to bytes",
		)
	}

	return bytes, nil
}
