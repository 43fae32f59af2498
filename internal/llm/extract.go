package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrNoJSON reports a model response without any JSON value.
var ErrNoJSON = errors.New("no json found in response")

// ParseError reports a model response that could not be turned into the
// expected document.
type ParseError struct {
	Task     string
	Response string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s response: %v", e.Task, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func newParseError(task, response string, err error) *ParseError {
	const maxSnippet = 512
	if len(response) > maxSnippet {
		cut := maxSnippet
		for cut > 0 && !utf8.RuneStart(response[cut]) {
			cut--
		}
		response = response[:cut]
	}
	return &ParseError{Task: task, Response: response, Err: err}
}

// ExtractJSON locates the JSON payload in a model response. A ```json fenced
// block wins; otherwise the span from the first '{' to the last '}' is used,
// or the array span when '[' comes first.
func ExtractJSON(response string) (string, error) {
	if start := strings.Index(response, "```json"); start >= 0 {
		body := response[start+len("```json"):]
		if end := strings.Index(body, "```"); end >= 0 {
			body = body[:end]
		}
		return strings.TrimSpace(body), nil
	}

	objStart := strings.Index(response, "{")
	arrStart := strings.Index(response, "[")
	switch {
	case objStart >= 0 && (arrStart < 0 || objStart < arrStart):
		end := strings.LastIndex(response, "}")
		if end < objStart {
			return "", ErrNoJSON
		}
		return response[objStart : end+1], nil
	case arrStart >= 0:
		end := strings.LastIndex(response, "]")
		if end < arrStart {
			return "", ErrNoJSON
		}
		return response[arrStart : end+1], nil
	default:
		return "", ErrNoJSON
	}
}

func decodeJSON(task, response string, dst any) error {
	raw, err := ExtractJSON(response)
	if err != nil {
		return newParseError(task, response, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return newParseError(task, response, err)
	}
	return nil
}
