package web

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// flowSchema describes the shape of a flow payload. Graph rules are checked later by the engine.
const flowSchema = `{
  "type": "object",
  "required": ["name", "nodes", "edges"],
  "properties": {
    "name": {"type": "string"},
    "nodes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "type"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "type": {"enum": ["leadSource", "wait", "coldEmail"]},
          "data": {
            "type": "object",
            "properties": {
              "leadSourceId": {"type": ["string", "null"]},
              "emailTemplateId": {"type": ["string", "null"]},
              "delay": {
                "type": ["object", "null"],
                "properties": {
                  "days": {"type": ["string", "number", "null"]},
                  "hours": {"type": ["string", "number", "null"]},
                  "minutes": {"type": ["string", "number", "null"]}
                }
              }
            }
          }
        }
      }
    },
    "edges": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["source", "target"],
        "properties": {
          "source": {"type": "string"},
          "target": {"type": "string"}
        }
      }
    }
  }
}`

var flowSchemaLoader = gojsonschema.NewStringLoader(flowSchema)

// validateFlowPayload checks a raw flow body against flowSchema.
func validateFlowPayload(body []byte) error {
	result, err := gojsonschema.Validate(flowSchemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return err
	}

	if !result.Valid() {
		var errors []string
		for _, desc := range result.Errors() {
			errors = append(errors, desc.String())
		}

		return fmt.Errorf("validation errors: %s", strings.Join(errors, "; "))
	}

	return nil
}
