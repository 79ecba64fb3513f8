package tes

import (
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

// taskSchemaDoc is a minimal OpenAPI 3 document describing the TES task
// body this package emits. It exists to catch a malformed task (e.g. an
// executor missing an image) before the JSON reaches the network or a
// dry-run output file, not to validate a full TES server response.
const taskSchemaDoc = `
openapi: 3.0.0
info: {title: tes-task, version: "1.0"}
paths: {}
components:
  schemas:
    Task:
      type: object
      required: [name, executors]
      properties:
        name: {type: string}
        executors:
          type: array
          minItems: 1
          items:
            type: object
            required: [image, command]
            properties:
              image: {type: string, minLength: 1}
              command: {type: array, items: {type: string}}
              workdir: {type: string}
              stdout: {type: string}
              stderr: {type: string}
        inputs:
          type: array
          items: {type: object, required: [path]}
        outputs:
          type: array
          items: {type: object, required: [path]}
`

var taskSchema *openapi3.Schema

func init() {
	doc, err := openapi3.NewLoader().LoadFromData([]byte(taskSchemaDoc))
	if err != nil {
		panic(fmt.Sprintf("tes: load embedded task schema: %v", err))
	}
	taskSchema = doc.Components.Schemas["Task"].Value
}

// ValidateTask checks task against the embedded TES task schema, returning
// a descriptive error for the first violation found.
func ValidateTask(task Task) error {
	raw, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("tes: marshal task for validation: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("tes: unmarshal task for validation: %w", err)
	}
	if err := taskSchema.VisitJSON(generic); err != nil {
		return fmt.Errorf("tes: task failed schema validation: %w", err)
	}
	return nil
}
