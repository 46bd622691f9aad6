package parsers

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/homefix-assistant/server/internal/agent/conversation"
	logx "github.com/homefix-assistant/server/pkg/logger"
)

// basic safety limits to avoid pathological model output
const (
	maxContentLen = 64 * 1024
	maxFacts      = 50
	maxKeyLen     = 64
	maxValueLen   = 1024
	maxErrSnippet = 200
)

// ParseFacts decodes the fact-extraction model output into key/value pairs
// in document order. It tolerates code fences and prose around a single JSON
// object. Anything unparseable yields no facts.
func ParseFacts(content string) []conversation.Fact {
	facts, err := parseFacts(content)
	if err != nil {
		logx.Debug().Err(err).Str("content", safeSnippet(content)).Msg("fact extraction output ignored")
		return []conversation.Fact{}
	}
	return facts
}

func parseFacts(content string) ([]conversation.Fact, error) {
	if len(content) > maxContentLen {
		return nil, fmt.Errorf("content too large")
	}
	if !utf8.ValidString(content) {
		return nil, fmt.Errorf("content is not valid utf-8")
	}

	body := stripCodeFence(strings.TrimSpace(content))
	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no json object found")
	}

	// decode token by token so key order survives
	dec := json.NewDecoder(strings.NewReader(body[start : end+1]))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil, fmt.Errorf("decode facts: expected object")
	}

	out := []conversation.Fact{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode facts: %w", err)
		}
		k, _ := tok.(string)
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode facts %q: %w", k, err)
		}
		if len(out) >= maxFacts {
			continue
		}
		key := strings.TrimSpace(k)
		if key == "" || len(key) > maxKeyLen {
			continue
		}
		v, ok := stringify(raw)
		if !ok || len(v) > maxValueLen {
			continue
		}
		out = append(out, conversation.Fact{Key: key, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode facts: %w", err)
	}
	return out, nil
}

// stringify renders scalars as text and nested values as compact JSON.
// Null values are dropped.
func stringify(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSuffix(strings.TrimSpace(s), "```")
}

func safeSnippet(s string) string {
	if len(s) <= maxErrSnippet {
		return s
	}
	cut := maxErrSnippet
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
