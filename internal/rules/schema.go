package rules

import (
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// rulesSchema constrains the rule file shape before unmarshalling.
// Pattern compilability is checked separately in Parse.
const rulesSchema = `{
	"type": "object",
	"properties": {
		"date_patterns": {
			"type": "object",
			"additionalProperties": {
				"type": "object",
				"properties": {
					"patterns": {"type": "array", "items": {"type": "string"}},
					"keywords": {"type": "array", "items": {"type": "string"}},
					"priority": {"type": "integer", "minimum": 0}
				},
				"required": ["patterns"]
			}
		},
		"invoice_patterns": {
			"type": "object",
			"additionalProperties": {
				"type": "object",
				"properties": {
					"keywords": {"type": "array", "items": {"type": "string"}},
					"patterns": {"type": "array", "items": {"type": "string"}},
					"max_length": {"type": "integer", "minimum": 1}
				},
				"required": ["keywords", "patterns"]
			}
		},
		"supplier_rules": {
			"type": "object",
			"properties": {
				"company_indicators": {"type": "array", "items": {"type": "string"}}
			}
		}
	},
	"required": ["date_patterns", "invoice_patterns"]
}`

var compiledRulesSchema = jsonschema.MustCompileString("extraction_rules.json", rulesSchema)

func validateSchema(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	if err := compiledRulesSchema.Validate(doc); err != nil {
		// The validator's multi-line output is noisy in logs.
		return strippedError{err}
	}
	return nil
}

type strippedError struct{ err error }

func (e strippedError) Error() string {
	msg := e.err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return msg
}

func (e strippedError) Unwrap() error { return e.err }
