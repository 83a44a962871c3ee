package toolcall

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/effective-security/toolagent/pkg/llmutils"
	"github.com/kaptinlin/jsonrepair"
)

var (
	fencedJSONRegex  = regexp.MustCompile("(?s)```json[ \t]*\r?\n(.*?)\r?\n[ \t]*```")
	fencedPlainRegex = regexp.MustCompile("(?s)```[ \t]*\r?\n(.*?)\r?\n[ \t]*```")
	// single level of nesting, the closing brace of the object is optional
	looseObjectRegex = regexp.MustCompile(`\{\s*["']tool["']\s*:\s*["'][^"']+["']\s*,\s*["']parameters["']\s*:\s*\{[^}]+\}\s*\}?`)
)

type strategy struct {
	name       string
	candidates func(text string) []string
}

func (s *strategy) Name() string { return s.name }

func (s *strategy) Candidates(text string) []string { return s.candidates(text) }

// New returns a Strategy from a candidates function
func New(name string, candidates func(text string) []string) Strategy {
	return &strategy{name: name, candidates: candidates}
}

// FencedJSON finds code blocks tagged as json
func FencedJSON() Strategy {
	return New("fenced_json", func(text string) []string {
		return submatches(fencedJSONRegex, text)
	})
}

// FencedPlain finds code blocks without a language tag
func FencedPlain() Strategy {
	return New("fenced_plain", func(text string) []string {
		return submatches(fencedPlainRegex, text)
	})
}

// WholeText uses the whole text
func WholeText() Strategy {
	return New("whole_text", func(text string) []string {
		return []string{strings.TrimSpace(text)}
	})
}

// BalancedScan returns every brace-balanced object in the text,
// in the order of the opening brace.
func BalancedScan() Strategy {
	return New("balanced_scan", func(text string) []string {
		var list []string
		for i := 0; i < len(text); i++ {
			if text[i] != '{' {
				continue
			}
			if end := llmutils.IndexClosingBrace(text, i); end > 0 {
				list = append(list, text[i:end+1])
			}
		}
		return list
	})
}

// LooseObject matches a call-shaped object with at most one level of nesting,
// and repairs it when it is not valid JSON.
func LooseObject() Strategy {
	return New("loose_object", func(text string) []string {
		var list []string
		for _, m := range looseObjectRegex.FindAllString(text, -1) {
			if !json.Valid([]byte(m)) {
				repaired, err := jsonrepair.JSONRepair(m)
				if err != nil {
					continue
				}
				m = repaired
			}
			list = append(list, m)
		}
		return list
	})
}

func submatches(re *regexp.Regexp, text string) []string {
	var list []string
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		list = append(list, m[1])
	}
	return list
}
