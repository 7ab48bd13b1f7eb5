package fetch

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/alvmarrod/link-oracle/internal/domain"
	"github.com/alvmarrod/link-oracle/internal/storage"
)

// ExtractLinks pulls raw link feature records out of a fetched page,
// restricted to the page's own registrable domain (the crawl works
// in-domain; one representative per page is enough because links to the
// same page from one domain look alike). Returns at most maxLinks records,
// deduplicated by resolved URL within the page.
func ExtractLinks(doc *goquery.Document, base *url.URL, host string, maxLinks int) []*storage.LinkRecord {
	if doc == nil || base == nil {
		return nil
	}

	root := domain.ExtractRoot(host)
	seen := make(map[string]bool)
	var records []*storage.LinkRecord

	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return true
		}

		ref, err := url.Parse(href)
		if err != nil {
			return true
		}

		resolved := base.ResolveReference(ref)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return true
		}
		resolved.Fragment = ""

		target := strings.ToLower(resolved.Hostname())
		if target == "" || domain.ExtractRoot(target) != root {
			return true
		}
		if domain.IsExcluded(target) {
			return true
		}

		urlStr := resolved.String()
		if seen[urlStr] {
			return true
		}
		seen[urlStr] = true

		records = append(records, linkRecord(sel, urlStr, target))
		return maxLinks <= 0 || len(records) < maxLinks
	})

	return records
}

// linkRecord captures the shape of one anchor element.
func linkRecord(sel *goquery.Selection, urlStr, host string) *storage.LinkRecord {
	rec := &storage.LinkRecord{
		URL:    urlStr,
		Text:   strings.TrimSpace(sel.Text()),
		Domain: host,
	}

	if classes, ok := sel.Attr("class"); ok {
		rec.Classes = strings.Fields(classes)
	}
	if id, ok := sel.Attr("id"); ok {
		rec.ElemID = id
	}
	if rel, ok := sel.Attr("rel"); ok {
		rec.Rel = rel
	}
	if title, ok := sel.Attr("title"); ok {
		rec.Title = title
	}

	return rec
}
