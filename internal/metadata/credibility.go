package metadata

import "strings"

// DefaultCredibility applies to domains with no recognizable tier.
const DefaultCredibility = 0.5

// referenceDomains carries scores for well-known outlets. Matching covers
// the domain itself and its subdomains.
var referenceDomains = map[string]float64{
	"reuters.com":     0.9,
	"apnews.com":      0.9,
	"bbc.com":         0.85,
	"bbc.co.uk":       0.85,
	"nature.com":      0.9,
	"sciencemag.org":  0.9,
	"arxiv.org":       0.85,
	"nytimes.com":     0.8,
	"wsj.com":         0.8,
	"theguardian.com": 0.8,
	"economist.com":   0.8,
	"wikipedia.org":   0.7,
}

// CredibilityFor scores a domain in [0,1] from its shape alone: government
// and academic suffixes rank high, known reference outlets mid-high, .org
// slightly above the default. It never returns 0 for a non-empty domain.
func CredibilityFor(domain string) float64 {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" || domain == UnknownDomain {
		return DefaultCredibility
	}
	if strings.HasSuffix(domain, ".gov") || strings.Contains(domain, ".gov.") {
		return 0.9
	}
	if strings.HasSuffix(domain, ".edu") || strings.Contains(domain, ".ac.") || strings.HasSuffix(domain, ".edu.au") {
		return 0.9
	}
	for known, score := range referenceDomains {
		if domain == known || strings.HasSuffix(domain, "."+known) {
			return score
		}
	}
	if strings.HasSuffix(domain, ".org") {
		return 0.6
	}
	return DefaultCredibility
}
