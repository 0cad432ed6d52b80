// Package jsonx pulls JSON objects out of LLM chat output. Models wrap JSON
// in prose, code fences or comments; extraction tries the most explicit
// envelope first and degrades to a balanced-brace scan.
package jsonx

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	jsonFenceRe = regexp.MustCompile("(?is)```json[ \t]*\n(.*?)\n[ \t]*```")
	anyFenceRe  = regexp.MustCompile("(?s)```[^j\n]*\n(.*?)\n[ \t]*```")

	trailingCommaObjRe = regexp.MustCompile(`,\s*}`)
	trailingCommaArrRe = regexp.MustCompile(`,\s*]`)
	lineCommentRe      = regexp.MustCompile(`(?m)//.*$`)
)

// ExtractBlocks returns JSON candidates in priority order:
// ```json fences, then other code fences, then raw balanced-brace runs.
func ExtractBlocks(text string) []string {
	var candidates []string

	for _, m := range jsonFenceRe.FindAllStringSubmatch(text, -1) {
		candidates = append(candidates, m[1])
	}
	for _, m := range anyFenceRe.FindAllStringSubmatch(text, -1) {
		candidates = append(candidates, m[1])
	}
	candidates = append(candidates, balancedBraces(text)...)

	return candidates
}

func balancedBraces(text string) []string {
	var results []string
	i := 0
	for i < len(text) {
		if text[i] != '{' {
			i++
			continue
		}
		depth := 1
		start := i
		i++
		for i < len(text) && depth > 0 {
			switch text[i] {
			case '{':
				depth++
			case '}':
				depth--
			}
			i++
		}
		if depth == 0 {
			results = append(results, text[start:i])
		}
	}
	return results
}

// Repair strips the two malformations models produce most: trailing commas
// and // line comments. Only called after strict parsing already failed.
func Repair(s string) string {
	s = trailingCommaObjRe.ReplaceAllString(s, "}")
	s = trailingCommaArrRe.ReplaceAllString(s, "]")
	s = lineCommentRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Unmarshal decodes the first candidate JSON object from text into v. When
// every candidate fails strict parsing, the first one gets a single repair
// pass before giving up.
func Unmarshal(text string, v any) error {
	candidates := ExtractBlocks(text)
	if len(candidates) == 0 {
		return fmt.Errorf("no JSON object found in response")
	}

	var firstErr error
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" || c[0] != '{' {
			continue
		}
		err := json.Unmarshal([]byte(c), v)
		if err == nil {
			return nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}

	repaired := Repair(candidates[0])
	if repaired != "" && repaired[0] == '{' {
		if err := json.Unmarshal([]byte(repaired), v); err == nil {
			return nil
		}
	}

	if firstErr == nil {
		firstErr = fmt.Errorf("no JSON object found in response")
	}
	return fmt.Errorf("parse llm json: %w", firstErr)
}
