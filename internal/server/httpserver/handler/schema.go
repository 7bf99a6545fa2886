// Package handler provides HTTP request handlers for data-scribbler.
package handler

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/envelope.schema.json
var envelopeSchemaJSON []byte

const envelopeSchemaURL = "envelope.schema.json"

// compileEnvelopeSchema compiles the embedded request schema.
func compileEnvelopeSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	if err := compiler.AddResource(envelopeSchemaURL, bytes.NewReader(envelopeSchemaJSON)); err != nil {
		return nil, fmt.Errorf("add envelope schema: %w", err)
	}
	schema, err := compiler.Compile(envelopeSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile envelope schema: %w", err)
	}
	return schema, nil
}

// decodeEnvelope validates body against the schema and decodes it.
func decodeEnvelope(schema *jsonschema.Schema, body []byte) (*Envelope, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var instance any
	if err := dec.Decode(&instance); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("decode body: trailing data")
	}
	if err := schema.Validate(instance); err != nil {
		return nil, err
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return &env, nil
}
