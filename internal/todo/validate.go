package todo

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"io"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed input.schema.json
var inputSchemaJSON string

var inputSchema = jsonschema.MustCompileString("input.schema.json", inputSchemaJSON)

// DecodeInput parses and validates a create/update body. Both "text" and
// "complete" must be present with the right JSON type; unknown fields are
// ignored. Text is kept byte-for-byte.
func DecodeInput(data []byte) (Input, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Input{}, &ValidationError{Message: "request body is required"}
		}
		return Input{}, &ValidationError{Message: "invalid JSON body"}
	}
	if err := dec.Decode(new(json.RawMessage)); !errors.Is(err, io.EOF) {
		return Input{}, &ValidationError{Message: "unexpected data after JSON body"}
	}

	if err := inputSchema.Validate(doc); err != nil {
		return Input{}, schemaError(err)
	}

	var in Input
	if err := json.Unmarshal(data, &in); err != nil {
		return Input{}, &ValidationError{Message: "invalid JSON body"}
	}
	return in, nil
}

// schemaError reduces a jsonschema failure to its first leaf cause.
func schemaError(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &ValidationError{Message: err.Error()}
	}

	leaf := firstLeaf(ve)
	return &ValidationError{Field: leaf.InstanceLocation, Message: leaf.Message}
}

func firstLeaf(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}
