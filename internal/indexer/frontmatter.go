package indexer

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// frontMatterBlocklist names front-matter keys dropped outright because
// they are routinely used to carry secrets in documentation repos.
var frontMatterBlocklist = map[string]bool{
	"password": true,
	"token":    true,
	"apikey":   true,
	"api_key":  true,
	"secret":   true,
	"email":    true,
}

var (
	secretLikePattern = regexp.MustCompile(`(?i)\bsk-[a-zA-Z0-9]{16,}\b|\b[a-f0-9]{32,}\b`)
	jwtLikePattern    = regexp.MustCompile(`^[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+$`)
)

// extractFrontMatter finds a leading `---`-delimited block (the delimiter
// scan is simple string handling, matching how the config loader handles
// its own delimited sections before handing structured bytes to yaml.v3)
// and returns its raw YAML body plus the remaining document body. A
// malformed or absent block returns an empty front matter string and the
// original text unchanged.
func extractFrontMatter(text string) (frontMatter string, body string) {
	trimmed := strings.TrimLeft(text, "\n\r\t ")
	if !strings.HasPrefix(trimmed, "---") {
		return "", text
	}
	rest := trimmed[3:]
	// Require the opening delimiter to be on its own line.
	if len(rest) > 0 && rest[0] != '\n' && rest[0] != '\r' {
		return "", text
	}
	rest = strings.TrimPrefix(rest, "\r\n")
	rest = strings.TrimPrefix(rest, "\n")

	end := findClosingDelimiter(rest)
	if end < 0 {
		return "", text
	}
	return rest[:end], rest[end+len("---"):]
}

func findClosingDelimiter(s string) int {
	lines := strings.SplitAfter(s, "\n")
	offset := 0
	for _, line := range lines {
		trimmedLine := strings.TrimRight(line, "\n\r")
		if trimmedLine == "---" || trimmedLine == "..." {
			return offset
		}
		offset += len(line)
	}
	return -1
}

// sanitizeFrontMatter decodes the YAML front-matter block, dropping
// blocklisted keys and redacting values that look like secrets. Decode
// failures are swallowed — the document still processes, just without
// metadata, per spec's "malformed blocks are ignored" rule.
func sanitizeFrontMatter(raw string) map[string]string {
	if strings.TrimSpace(raw) == "" {
		return map[string]string{}
	}
	var decoded map[string]interface{}
	if err := yaml.Unmarshal([]byte(raw), &decoded); err != nil {
		return map[string]string{}
	}

	out := make(map[string]string, len(decoded))
	for k, v := range decoded {
		lowerKey := strings.ToLower(k)
		if frontMatterBlocklist[lowerKey] {
			continue
		}
		str := stringifyFrontMatterValue(v)
		out[k] = redactSecretLike(str)
	}
	return out
}

func stringifyFrontMatterValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, stringifyFrontMatterValue(item))
		}
		return strings.Join(parts, ", ")
	default:
		b, err := yaml.Marshal(val)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(b))
	}
}

func redactSecretLike(s string) string {
	if jwtLikePattern.MatchString(s) && strings.Count(s, ".") == 2 {
		return "[redacted]"
	}
	return secretLikePattern.ReplaceAllString(s, "[redacted]")
}
