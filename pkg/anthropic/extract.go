package anthropic

import (
	"strings"

	"github.com/rotisserie/eris"
)

// ErrNoJSON is returned when a model reply contains no JSON object.
var ErrNoJSON = eris.New("anthropic: no JSON object in response")

// ExtractJSON pulls the JSON object out of a model reply. Models often wrap
// the object in a markdown code fence or surround it with prose, so the
// fence body is preferred and otherwise the outermost braces are taken.
func ExtractJSON(text string) (string, error) {
	if body, ok := fenceBody(text); ok {
		text = body
	}
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return "", ErrNoJSON
	}
	return text[start : end+1], nil
}

func fenceBody(text string) (string, bool) {
	open := strings.Index(text, "```")
	if open < 0 {
		return "", false
	}
	rest := text[open+3:]
	// Skip the language tag line, e.g. ```json.
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 && !strings.Contains(rest[:nl], "{") {
		rest = rest[nl+1:]
	}
	closing := strings.Index(rest, "```")
	if closing < 0 {
		return rest, true
	}
	return rest[:closing], true
}
