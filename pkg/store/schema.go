package store

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/panbanda/decomplex/pkg/models"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed scores.schema.json
var scoresSchema []byte

const scoresSchemaURL = "https://github.com/panbanda/decomplex/schemas/scores.json"

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(scoresSchema))
	if err != nil {
		return nil, fmt.Errorf("parse score schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(scoresSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add score schema: %w", err)
	}
	return c.Compile(scoresSchemaURL)
})

// decodeScores validates data against the score schema and decodes it.
// Empty input decodes to an empty document.
func decodeScores(data []byte) (models.Scores, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return models.Scores{}, nil
	}

	schema, err := compileSchema()
	if err != nil {
		return nil, err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid score document: %w", err)
	}
	if err := schema.Validate(inst); err != nil {
		return nil, fmt.Errorf("invalid score document: %w", err)
	}

	var scores models.Scores
	if err := json.Unmarshal(data, &scores); err != nil {
		return nil, fmt.Errorf("decode score document: %w", err)
	}
	if scores == nil {
		scores = models.Scores{}
	}
	return scores, nil
}

// encodeScores renders scores as the indented document, writing nil
// histories and runs as empty objects so the output validates.
func encodeScores(scores models.Scores) ([]byte, error) {
	for path, history := range scores {
		if history == nil {
			history = models.FileHistory{}
			scores[path] = history
		}
		for ts, run := range history {
			if run == nil {
				history[ts] = models.RunScores{}
			}
		}
	}
	data, err := json.MarshalIndent(scores, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
