package parser

import (
	"fmt"
	"regexp"
	"strings"

	"ConsentCrawl/internal/models"
)

// Parser implements the Service interface
type Parser struct {
	// hostfileLineRegex matches "<ip> <domain>" lines
	hostfileLineRegex *regexp.Regexp
	// adblockLineRegex matches "||<domain>^" lines
	adblockLineRegex *regexp.Regexp
}

// NewParser creates a new blocklist parser
func NewParser() Service {
	return newParser()
}

// newParser creates the concrete implementation
func newParser() *Parser {
	return &Parser{
		hostfileLineRegex: regexp.MustCompile(`^\S+\s+(\S+)$`),
		adblockLineRegex:  regexp.MustCompile(`^\|\|([^/]+)\^$`),
	}
}

// Parse extracts the unique domains of content according to format.
// Domains keep first-seen order.
func (p *Parser) Parse(format models.BlocklistFormat, content string) ([]string, error) {
	var extract func(line string) string

	switch format {
	case models.FormatHostfile:
		extract = p.parseHostfileLine
	case models.FormatBlocklist:
		extract = p.parseAdblockLine
	case models.FormatDomains:
		extract = parseDomainLine
	default:
		return nil, fmt.Errorf("%w: unknown blocklist format %q", models.ErrConfig, format)
	}

	seen := make(map[string]struct{})
	var domains []string

	for _, line := range strings.Split(content, "\n") {
		domain := NormalizeDomain(extract(strings.TrimRight(line, "\r")))
		if domain == "" {
			continue
		}
		if _, ok := seen[domain]; ok {
			continue
		}
		seen[domain] = struct{}{}
		domains = append(domains, domain)
	}

	return domains, nil
}

// parseHostfileLine extracts the domain of an "<ip> <domain>" line, skipping comments
func (p *Parser) parseHostfileLine(line string) string {
	if strings.HasPrefix(line, "#") {
		return ""
	}
	match := p.hostfileLineRegex.FindStringSubmatch(strings.TrimSpace(line))
	if match == nil {
		return ""
	}
	return match[1]
}

// parseAdblockLine extracts the hostname of a "||domain^" line
func (p *Parser) parseAdblockLine(line string) string {
	if !strings.HasPrefix(line, "||") {
		return ""
	}
	match := p.adblockLineRegex.FindStringSubmatch(strings.TrimSpace(line))
	if match == nil {
		return ""
	}
	return match[1]
}

func parseDomainLine(line string) string {
	return strings.TrimSpace(line)
}

// NormalizeDomain lower-cases a domain and strips the trailing dot
func NormalizeDomain(domain string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
}
