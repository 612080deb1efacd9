// Package privacy scans module content for secrets and personal data before
// it is exported or shared, and can replace findings with placeholders.
package privacy

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/statokit/stato/internal/state"
)

// Finding is one detected sensitive item.
type Finding struct {
	File        string
	Line        int
	Category    string
	Description string
	MatchedText string
	Replacement string
}

// Pattern pairs a detector with its category and placeholder.
type Pattern struct {
	Regexp      *regexp.Regexp
	Category    string
	Description string
	Replacement string
}

// sensitivePatterns is ordered by specificity: narrow vendor formats first,
// broad heuristics last, so sanitization rewrites the precise form.
var sensitivePatterns = []Pattern{
	{regexp.MustCompile(`sk-ant-[a-zA-Z0-9\-]{20,}`), "api_key", "Anthropic API key", "{ANTHROPIC_API_KEY}"},
	{regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`), "api_key", "API key (OpenAI/Anthropic)", "{API_KEY}"},
	{regexp.MustCompile(`AKIA[0-9A-Z]{16}`), "credential", "AWS access key ID", "{AWS_ACCESS_KEY}"},
	{regexp.MustCompile(`ghp_[a-zA-Z0-9]{36}`), "token", "GitHub personal access token", "{GITHUB_TOKEN}"},
	{regexp.MustCompile(`gho_[a-zA-Z0-9]{36}`), "token", "GitHub OAuth token", "{GITHUB_OAUTH_TOKEN}"},
	{regexp.MustCompile(`glpat-[a-zA-Z0-9\-]{20,}`), "token", "GitLab personal access token", "{GITLAB_TOKEN}"},
	{regexp.MustCompile(`xox[bpras]-[a-zA-Z0-9\-]{10,}`), "token", "Slack token", "{SLACK_TOKEN}"},

	{regexp.MustCompile(`Bearer\s+[a-zA-Z0-9\-._~+/]{20,}=*`), "token", "Bearer token", "Bearer {TOKEN}"},
	{regexp.MustCompile(`Authorization:\s*\S+`), "token", "Authorization header", "Authorization: {REDACTED}"},

	{regexp.MustCompile(`-----BEGIN\s+(RSA\s+|EC\s+|OPENSSH\s+)?PRIVATE KEY-----`), "credential", "Private key", "{PRIVATE_KEY}"},

	{regexp.MustCompile(`(postgres|postgresql|mysql|mongodb|redis)://\S+:\S+@\S+`), "credential", "Database connection string", "{DATABASE_URL}"},

	{regexp.MustCompile(`(?i)(password|passwd|pwd|secret)\s*[=:]\s*["']?[^\s"']{4,}`), "credential", "Hardcoded password/secret", "{REDACTED_SECRET}"},

	{regexp.MustCompile(`/home/[a-zA-Z0-9_\-]+/`), "path", "Home directory path (contains username)", "/home/{user}/"},
	{regexp.MustCompile(`/Users/[a-zA-Z0-9_\-]+/`), "path", "macOS home directory (contains username)", "/Users/{user}/"},
	{regexp.MustCompile(`C:\\\\Users\\\\[a-zA-Z0-9_\-]+\\\\`), "path", "Windows home directory (contains username)", `C:\\Users\\{user}\\`},

	{regexp.MustCompile(`\b10\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`), "network", "Internal IP address (10.x.x.x)", "{INTERNAL_IP}"},
	{regexp.MustCompile(`\b192\.168\.\d{1,3}\.\d{1,3}\b`), "network", "Internal IP address (192.168.x.x)", "{INTERNAL_IP}"},

	{regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`), "pii", "Email address", "{EMAIL}"},

	// Research/clinical identifiers.
	{regexp.MustCompile(`(?i)(patient|subject|donor)[_\-]?id\s*[=:]\s*\S+`), "pii", "Patient/subject identifier", "{SUBJECT_ID}"},
	{regexp.MustCompile(`(?i)MRN\s*[=:]\s*\d+`), "pii", "Medical record number", "MRN: {REDACTED}"},
	{regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), "pii", "Possible SSN pattern", "{SSN}"},
}

// Scanner matches module content against the sensitive-pattern table.
type Scanner struct {
	patterns []Pattern
	ignore   []string
}

// NewScanner returns a scanner with the built-in table plus any extra
// patterns.
func NewScanner(extra []Pattern) *Scanner {
	patterns := make([]Pattern, 0, len(sensitivePatterns)+len(extra))
	patterns = append(patterns, sensitivePatterns...)
	patterns = append(patterns, extra...)
	return &Scanner{patterns: patterns}
}

// LoadIgnoreFile reads .statoignore-style suppression patterns. Blank lines
// and # comments are skipped; * wildcards are supported.
func (s *Scanner) LoadIgnoreFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading ignore file: %w", err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s.ignore = append(s.ignore, line)
	}
	return nil
}

// ScanFile scans one file's content line by line.
func (s *Scanner) ScanFile(file, content string) []Finding {
	var findings []Finding
	for i, line := range strings.Split(content, "\n") {
		for _, p := range s.patterns {
			for _, match := range p.Regexp.FindAllString(line, -1) {
				if s.ignored(match) {
					continue
				}
				display := match
				if len(display) > 20 {
					display = display[:20] + "..."
				}
				findings = append(findings, Finding{
					File:        file,
					Line:        i + 1,
					Category:    p.Category,
					Description: p.Description,
					MatchedText: display,
					Replacement: p.Replacement,
				})
			}
		}
	}
	return findings
}

// ScanDir scans every module under a .stato/ directory.
func (s *Scanner) ScanDir(statoDir string) ([]Finding, error) {
	var findings []Finding
	err := filepath.WalkDir(statoDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".history" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(p, state.Ext) {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("reading %s: %w", p, err)
		}
		rel, err := filepath.Rel(statoDir, p)
		if err != nil {
			return err
		}
		findings = append(findings, s.ScanFile(filepath.ToSlash(rel), string(data))...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return findings, nil
}

// Sanitize replaces every detected secret with its placeholder.
func (s *Scanner) Sanitize(content string) string {
	result := content
	for _, p := range s.patterns {
		result = p.Regexp.ReplaceAllStringFunc(result, func(match string) string {
			if s.ignored(match) {
				return match
			}
			return p.Replacement
		})
	}
	return result
}

// ignored reports whether a match is suppressed by the ignore patterns.
// A pattern without wildcards must match the full text.
func (s *Scanner) ignored(match string) bool {
	for _, pattern := range s.ignore {
		if ok, _ := filepath.Match(pattern, match); ok {
			return true
		}
	}
	return false
}
