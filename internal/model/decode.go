package model

import (
	"bytes"
	"io"

	json "github.com/goccy/go-json"
)

// DecodeJSON decodes one JSON value from r. Numbers inside untyped case data
// are kept as json.Number so integers beyond 2^53 survive a round trip.
func DecodeJSON(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return dec.Decode(v)
}

// DecodeJSONBytes is DecodeJSON over an in-memory body.
func DecodeJSONBytes(b []byte, v any) error {
	return DecodeJSON(bytes.NewReader(b), v)
}
