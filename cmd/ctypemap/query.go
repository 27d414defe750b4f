package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/itchyny/gojq"
	"github.com/raymyers/ctypemap/pkg/model"
)

// runQuery applies a jq expression to the JSON form of the model. String
// results are printed raw, everything else as compact JSON.
func runQuery(m *model.Model, expr string, out io.Writer) error {
	q, err := gojq.Parse(expr)
	if err != nil {
		return fmt.Errorf("invalid query: %w", err)
	}

	// gojq works on plain maps, so round-trip the model through JSON
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	var input map[string]any
	if err := json.Unmarshal(data, &input); err != nil {
		return err
	}

	iter := q.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		switch v := v.(type) {
		case error:
			return fmt.Errorf("query: %w", v)
		case string:
			fmt.Fprintln(out, v)
		default:
			b, err := json.Marshal(v)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
		}
	}
	return nil
}
