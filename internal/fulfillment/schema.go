package fulfillment

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const addressSchema = `{
  "type": "object",
  "required": ["street", "city", "state", "country", "postal_code"],
  "properties": {
    "street":      {"type": "string", "minLength": 1},
    "city":        {"type": "string", "minLength": 1},
    "state":       {"type": "string", "minLength": 1},
    "country":     {"type": "string", "minLength": 1},
    "postal_code": {"type": "string", "minLength": 1}
  }
}`

const detailsSchema = `{
  "type": "array",
  "minItems": 1,
  "items": {
    "type": "object",
    "required": ["product_id", "size", "color", "quantity"],
    "properties": {
      "product_id": {"type": "string", "minLength": 1},
      "size":       {"type": "string", "minLength": 1},
      "color":      {"type": "string", "minLength": 1},
      "quantity":   {"type": "integer", "minimum": 1}
    }
  }
}`

var (
	addressValidator = mustSchema(addressSchema)
	detailsValidator = mustSchema(detailsSchema)
)

func mustSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(err)
	}
	return schema
}

func validateJSON(schema *gojsonschema.Schema, field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: %s missing", ErrMalformedPayload, field)
	}
	result, err := schema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedPayload, field, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s: %s", ErrMalformedPayload, field, strings.Join(msgs, "; "))
	}
	return nil
}
