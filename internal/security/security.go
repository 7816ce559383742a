// Package security gates memory writes against storing secrets.
package security

import (
	"fmt"
	"regexp"
	"strings"
)

// Severity levels. Critical and high block the write; medium is allowed
// but reported.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
)

// Violation is a single detected secret pattern.
type Violation struct {
	PatternName string `json:"pattern"`
	MatchedText string `json:"matched_text"` // redacted
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

// ViolationError is returned when content is blocked from storage.
type ViolationError struct {
	Message    string
	Violations []Violation
}

func (e *ViolationError) Error() string {
	return "security violation: " + e.Message
}

type pattern struct {
	name        string
	re          *regexp.Regexp
	severity    string
	description string
}

var patterns = []pattern{
	{"OpenAI API Key", regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`), SeverityCritical, "OpenAI API key detected"},
	{"OpenAI Project Key", regexp.MustCompile(`sk-proj-[a-zA-Z0-9\-_]{20,}`), SeverityCritical, "OpenAI project API key detected"},
	{"Anthropic API Key", regexp.MustCompile(`sk-ant-[a-zA-Z0-9\-_]{10,}`), SeverityCritical, "Anthropic API key detected"},
	{"GitHub Token", regexp.MustCompile(`gh[pou]_[a-zA-Z0-9]{36,}`), SeverityCritical, "GitHub token detected"},
	{"AWS Access Key", regexp.MustCompile(`AKIA[A-Z0-9]{16}`), SeverityCritical, "AWS access key ID detected"},
	{"Slack Token", regexp.MustCompile(`xox[baprs]-[a-zA-Z0-9\-]{10,}`), SeverityCritical, "Slack token detected"},
	{"Stripe Key", regexp.MustCompile(`sk_live_[a-zA-Z0-9]{24,}`), SeverityCritical, "Stripe live secret key detected"},
	{"Stripe Test Key", regexp.MustCompile(`sk_test_[a-zA-Z0-9]{24,}`), SeverityHigh, "Stripe test secret key detected"},
	{"Google API Key", regexp.MustCompile(`AIza[a-zA-Z0-9\-_]{35}`), SeverityCritical, "Google API key detected"},
	{"Bearer Token", regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9\-_\.]{20,}`), SeverityCritical, "Bearer token detected"},
	{"Private Key", regexp.MustCompile(`-----BEGIN\s+(RSA\s+)?PRIVATE\s+KEY-----`), SeverityCritical, "Private key detected"},
	{"Password Assignment", regexp.MustCompile(`(?i)password\s*[:=]\s*['"][^'"]{8,}['"]`), SeverityHigh, "Hardcoded password detected"},
	{"Connection String Credential", regexp.MustCompile(`(?i)[a-z]+://[^/\s:]+:[^@\s]+@`), SeverityMedium, "Credential embedded in connection string"},
	{"Generic Secret Assignment", regexp.MustCompile(`(?i)(api[_-]?key|secret|token)\s*[:=]\s*['"][a-zA-Z0-9\-_]{16,}['"]`), SeverityMedium, "Possible secret assignment"},
}

// Scan returns every violation found in content, with matches redacted.
func Scan(content string) []Violation {
	var violations []Violation
	for _, p := range patterns {
		if m := p.re.FindString(content); m != "" {
			violations = append(violations, Violation{
				PatternName: p.name,
				MatchedText: redact(m),
				Severity:    p.severity,
				Description: p.description,
			})
		}
	}
	return violations
}

// Validate checks content for storable safety. It returns ok=false with a
// message when any critical or high severity pattern matches; medium
// findings are returned alongside ok=true.
func Validate(content string) (ok bool, message string, violations []Violation) {
	violations = Scan(content)

	var blocking []string
	for _, v := range violations {
		if v.Severity == SeverityCritical || v.Severity == SeverityHigh {
			blocking = append(blocking, v.PatternName)
		}
	}
	if len(blocking) > 0 {
		return false, fmt.Sprintf("content contains sensitive data (%s)", strings.Join(blocking, ", ")), violations
	}
	return true, "", violations
}

// redact keeps the first and last 4 characters of a match.
func redact(s string) string {
	if len(s) <= 12 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
