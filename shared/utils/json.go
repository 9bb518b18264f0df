package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// ErrTrailingData is returned by DecodeStrict when the input holds more than one JSON value.
var ErrTrailingData = errors.New("unexpected data after JSON value")

// DecodeStrict decodes a single JSON value into out. Unknown fields and
// anything after the value are rejected.
func DecodeStrict(data []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return ErrTrailingData
	}
	return nil
}
