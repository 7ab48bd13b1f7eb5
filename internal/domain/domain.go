// Package domain provides hostname helpers shared by link extraction and
// frontier scope policy.
package domain

import (
	"net/url"
	"regexp"
	"strings"
)

// Excluded domain patterns (social media, ads, analytics)
var excludedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(facebook|fb)\.com`),
	regexp.MustCompile(`(?i)twitter\.com`),
	regexp.MustCompile(`(?i)instagram\.com`),
	regexp.MustCompile(`(?i)linkedin\.com`),
	regexp.MustCompile(`(?i)youtube\.com`),
	regexp.MustCompile(`(?i)google-analytics\.com`),
	regexp.MustCompile(`(?i)doubleclick\.net`),
	regexp.MustCompile(`(?i)^ads?\.`),
	regexp.MustCompile(`(?i)^analytics?\.`),
	regexp.MustCompile(`(?i)googletagmanager\.com`),
	regexp.MustCompile(`(?i)googleapis\.com`),
}

// Extract extracts the hostname (domain/subdomain) from a URL string
func Extract(urlStr string) (string, error) {
	// Handle protocol-relative URLs
	if strings.HasPrefix(urlStr, "//") {
		urlStr = "https:" + urlStr
	}

	// Handle relative URLs (no scheme)
	if !strings.Contains(urlStr, "://") {
		return "", nil // Skip relative URLs
	}

	parsed, err := url.Parse(urlStr)
	if err != nil {
		return "", err
	}

	hostname := parsed.Hostname()
	if hostname == "" {
		return "", nil
	}

	return strings.ToLower(hostname), nil
}

// ExtractRoot extracts the root domain from a subdomain
// Example: blog.example.com -> example.com
func ExtractRoot(d string) string {
	parts := strings.Split(d, ".")
	if len(parts) >= 2 {
		return parts[len(parts)-2] + "." + parts[len(parts)-1]
	}
	return d
}

// IsExcluded checks if a domain matches any excluded pattern
func IsExcluded(d string) bool {
	for _, pattern := range excludedPatterns {
		if pattern.MatchString(d) {
			return true
		}
	}
	return false
}
