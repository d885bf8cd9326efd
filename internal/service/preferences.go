package service

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/qri-io/jsonschema"
)

//go:embed preferences.schema.json
var preferencesSchema []byte

func loadPreferencesSchema() (*jsonschema.Schema, error) {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal(preferencesSchema, rs); err != nil {
		return nil, fmt.Errorf("preferences schema: %w", err)
	}
	return rs, nil
}

// validatePreferences checks a preferences document against the schema.
// Violations come back as a KindInvalid error listing each of them.
func validatePreferences(ctx context.Context, rs *jsonschema.Schema, doc []byte) error {
	if !json.Valid(doc) {
		return invalid("preferences must be a JSON object")
	}
	verrs, err := rs.ValidateBytes(ctx, doc)
	if err != nil {
		return invalid("preferences must be a JSON object")
	}
	if len(verrs) == 0 {
		return nil
	}
	e := invalid("preferences do not match the schema")
	for _, v := range verrs {
		path := v.PropertyPath
		if path == "" {
			path = "/"
		}
		e.Details = append(e.Details, path+": "+v.Message)
	}
	return e
}
