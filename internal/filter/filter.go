// Package filter applies jq expressions to JSON output.
package filter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/itchyny/gojq"
)

// NormalizeExpression fixes shell-escaped operators in jq expressions.
// Zsh escapes ! to \! even in single quotes, breaking operators like !=.
func NormalizeExpression(expr string) string {
	return strings.ReplaceAll(expr, `\!`, `!`)
}

// Apply runs a jq expression against already-decoded JSON data.
// An empty expression returns the data unchanged. A single result is
// returned bare; multiple results are returned as a slice.
func Apply(data any, expression string) (any, error) {
	if expression == "" {
		return data, nil
	}

	query, err := gojq.Parse(NormalizeExpression(expression))
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", err)
	}

	iter := query.Run(data)
	var results []any
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			return nil, fmt.Errorf("filter error: %w", err)
		}
		results = append(results, v)
	}

	if len(results) == 1 {
		return results[0], nil
	}
	return results, nil
}

// ApplyToJSON applies a jq expression to raw JSON bytes and returns the
// filtered result re-encoded as JSON.
func ApplyToJSON(data []byte, expression string) ([]byte, error) {
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("invalid JSON input: %w", err)
	}

	result, err := Apply(decoded, expression)
	if err != nil {
		return nil, err
	}
	return json.Marshal(result)
}

// ApplyFromJSON applies a jq expression to raw JSON bytes and returns the
// decoded result for further formatting.
func ApplyFromJSON(data []byte, expression string) (any, error) {
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("invalid JSON input: %w", err)
	}
	return Apply(decoded, expression)
}
