package secrets

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"

	gitleaksConfig "github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
	gitleaksRegexp "github.com/zricethezav/gitleaks/v8/regexp"

	"github.com/fyrsmithlabs/pipeforge/internal/logging"
	"github.com/fyrsmithlabs/pipeforge/internal/validate"
	"github.com/fyrsmithlabs/pipeforge/internal/yamldoc"
)

// Finding is one detected secret.
type Finding struct {
	RuleID   string
	RuleDesc string
	Line     int // 1-based line in the scanned content
	Match    string
}

// Scanner detects secrets with the default Gitleaks rules plus an
// allowlist. It is safe for concurrent use.
type Scanner struct {
	mu       sync.Mutex
	detector *detect.Detector
}

// NewScanner builds a scanner. allowlist may be nil.
func NewScanner(allowlist *Allowlist) (*Scanner, error) {
	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("create gitleaks detector: %w", err)
	}
	if !allowlist.Empty() {
		applyAllowlist(&detector.Config, allowlist)
	}
	return &Scanner{detector: detector}, nil
}

// Detect returns the secrets found in content.
func (s *Scanner) Detect(content string) []Finding {
	s.mu.Lock()
	found := s.detector.DetectString(content)
	s.mu.Unlock()

	out := make([]Finding, 0, len(found))
	for _, f := range found {
		out = append(out, Finding{
			RuleID:   f.RuleID,
			RuleDesc: f.Description,
			Line:     lineOf(content, f.Secret, f.StartLine),
			Match:    f.Secret,
		})
	}
	return out
}

// Scan reports every finding in data as a HARDCODED_SECRET warning.
func (s *Scanner) Scan(ctx context.Context, data []byte) ([]validate.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := logging.FromContext(ctx).Named("secrets")
	content := string(data)
	lines := strings.Split(content, "\n")

	var issues []validate.Issue
	for _, f := range s.Detect(content) {
		loc := jobAt(lines, f.Line)
		log.Warn(ctx, "possible hardcoded secret",
			zap.String("rule", f.RuleID),
			zap.Int("line", f.Line),
			zap.String("location", loc),
			logging.RedactedString("match", f.Match))
		issues = append(issues, validate.Issue{
			Code:     validate.CodeHardcodedSecret,
			Message:  fmt.Sprintf("possible %s (rule %s); use a secrets reference instead", describe(f), f.RuleID),
			Location: loc,
			Line:     f.Line,
		})
	}
	return issues, nil
}

func describe(f Finding) string {
	if f.RuleDesc == "" {
		return "secret"
	}
	return strings.TrimSuffix(f.RuleDesc, ".")
}

// lineOf locates secret in content. Gitleaks line numbers are used only
// when the secret cannot be found verbatim.
func lineOf(content, secret string, fallback int) int {
	if secret != "" {
		if i := strings.Index(content, secret); i >= 0 {
			return strings.Count(content[:i], "\n") + 1
		}
	}
	if fallback < 1 {
		return 1
	}
	return fallback
}

var jobKeyLine = regexp.MustCompile(`^  ([^\s#:][^:]*):\s*(#.*)?$`)

// jobAt returns the path of the job whose block contains line, or "" when
// the line lies outside jobs.
func jobAt(lines []string, line int) string {
	if line < 1 || line > len(lines) {
		return ""
	}
	for i := line - 1; i >= 0; i-- {
		l := lines[i]
		if strings.HasPrefix(l, "jobs:") {
			return "jobs"
		}
		if l != "" && l[0] != ' ' && l[0] != '#' {
			return ""
		}
		if m := jobKeyLine.FindStringSubmatch(l); m != nil {
			return yamldoc.JoinPath("jobs", strings.TrimSpace(m[1]))
		}
	}
	return ""
}

// applyAllowlist adds the allowlist as a global Gitleaks allowlist.
func applyAllowlist(cfg *gitleaksConfig.Config, allowlist *Allowlist) {
	global := &gitleaksConfig.Allowlist{
		Description: "pipeforge project allowlist",
	}
	for _, re := range allowlist.Paths {
		global.Paths = append(global.Paths, (*gitleaksRegexp.Regexp)(re))
	}
	for _, re := range allowlist.Regexes {
		global.Regexes = append(global.Regexes, (*gitleaksRegexp.Regexp)(re))
	}
	cfg.Allowlists = append(cfg.Allowlists, global)
}
