package robots

import (
	"bufio"
	"regexp"
	"strings"
)

// Rule is a single Allow or Disallow pattern.
type Rule struct {
	Pattern string
	re      *regexp.Regexp
}

// NewRule compiles pattern. Every regexp metacharacter is taken literally
// except '*', which matches any run of characters.
func NewRule(pattern string) Rule {
	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return Rule{
		Pattern: pattern,
		re:      regexp.MustCompile(strings.Join(parts, ".*?")),
	}
}

// Matches reports whether the rule occurs anywhere in link.
func (r Rule) Matches(link string) bool {
	return r.re.MatchString(link)
}

// Specificity is the pattern length not counting '*' wildcards. "/a*" scores
// 2 and "/ab" scores 3, so an Allow for "/ab" beats a Disallow for "/a*"
// even though both match "/ab" over the same characters.
func (r Rule) Specificity() int {
	return len(r.Pattern) - strings.Count(r.Pattern, "*")
}

// RuleSet holds the rules of the "User-agent: *" block of a domain's
// robots.txt. It is immutable once built.
type RuleSet struct {
	Domain   string
	Disallow []Rule
	Allow    []Rule

	// Unrestricted marks a domain whose robots.txt could not be retrieved.
	Unrestricted bool
}

// unrestricted returns the sentinel rule set used when no robots.txt exists.
func unrestricted(domain string) *RuleSet {
	return &RuleSet{Domain: domain, Unrestricted: true}
}

// Allows evaluates link against the rule set. It is a pure function of the
// rule set and link.
func (rs *RuleSet) Allows(link string) bool {
	if rs == nil || rs.Unrestricted {
		return true
	}

	// A file that only lists Allow rules permits nothing else.
	allowed := !(len(rs.Disallow) == 0 && len(rs.Allow) > 0)

	mostSpecific := 0
	for _, rule := range rs.Disallow {
		if rule.Matches(link) {
			allowed = false
			if s := rule.Specificity(); s > mostSpecific {
				mostSpecific = s
			}
		}
	}

	for _, rule := range rs.Allow {
		if rule.Matches(link) && rule.Specificity() > mostSpecific {
			mostSpecific = rule.Specificity()
			allowed = true
		}
	}

	return allowed
}

// Parse extracts the first "User-agent: *" block of a robots.txt body.
// Comments are stripped, directive names are case-insensitive and source
// order of the patterns is preserved.
func Parse(domain, content string) *RuleSet {
	rules := &RuleSet{Domain: domain}

	scanner := bufio.NewScanner(strings.NewReader(content))
	inBlock := false
	seenBlock := false

	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}

		directive := strings.ToLower(strings.TrimSpace(parts[0]))
		value := strings.TrimSpace(parts[1])

		switch directive {
		case "user-agent":
			if inBlock {
				return rules
			}
			if value == "*" && !seenBlock {
				inBlock = true
				seenBlock = true
			}

		case "disallow":
			if inBlock && value != "" {
				rules.Disallow = append(rules.Disallow, NewRule(value))
			}

		case "allow":
			if inBlock && value != "" {
				rules.Allow = append(rules.Allow, NewRule(value))
			}
		}
	}

	return rules
}
