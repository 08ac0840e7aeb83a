package detect

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// maxProductSamples caps how many product titles extraction returns.
const maxProductSamples = 15

// jsonLDTargetCount is the JSON-LD yield below which class-based scraping
// kicks in as a fallback.
const jsonLDTargetCount = 5

// titleSeparators splits page titles on the separator characters stores put
// between their name and a tagline.
var titleSeparators = regexp.MustCompile(`\s*[–—|-]\s*`)

// ExtractStoreName finds a display name for the store. Preference order:
// site-name meta tag, first segment of the page title, hostname. If the URL
// itself cannot be parsed the raw input is returned unchanged; this function
// never fails.
func ExtractStoreName(html, pageURL string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err == nil {
		if name, ok := doc.Find(`meta[property="og:site_name"]`).Attr("content"); ok {
			if trimmed := strings.TrimSpace(name); trimmed != "" {
				return trimmed
			}
		}

		title := strings.TrimSpace(doc.Find("title").First().Text())
		if title != "" {
			first := strings.TrimSpace(titleSeparators.Split(title, 2)[0])
			if first != "" && utf8.RuneCountInString(first) < 60 {
				return first
			}
		}
	}

	parsed, err := url.Parse(pageURL)
	if err != nil || parsed.Host == "" {
		return pageURL
	}
	return strings.TrimPrefix(parsed.Host, "www.")
}

// Class naming conventions that mark product titles in storefront themes.
var productClassPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)product[_-]?title`),
	regexp.MustCompile(`(?i)product[_-]?name`),
	regexp.MustCompile(`(?i)card[_-]?title`),
}

// ExtractProductSamples mines sample product titles from homepage HTML.
// Structured JSON-LD product markup is preferred; class-based scraping of
// the raw markup only runs when JSON-LD yields fewer than five titles.
// Malformed JSON-LD blocks are skipped, never fatal.
func ExtractProductSamples(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var samples []string
	seen := make(map[string]bool)
	add := func(title string) {
		title = strings.TrimSpace(title)
		if title == "" || seen[title] {
			return
		}
		seen[title] = true
		samples = append(samples, title)
	}

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		for _, name := range productNamesFromJSONLD(s.Text()) {
			add(name)
		}
	})

	if len(samples) < jsonLDTargetCount {
		scrapeClassTitles(doc, add, func() bool { return len(samples) >= 10 })
	}

	if len(samples) > maxProductSamples {
		samples = samples[:maxProductSamples]
	}
	return samples
}

// productNamesFromJSONLD pulls product names out of one JSON-LD block. Both
// a top-level Product object and an array-valued @graph are supported. A
// parse failure contributes nothing.
func productNamesFromJSONLD(raw string) []string {
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil
	}

	var names []string
	if isProductNode(data) {
		if name, ok := data["name"].(string); ok && name != "" {
			names = append(names, name)
		}
	}
	if graph, ok := data["@graph"].([]any); ok {
		for _, item := range graph {
			node, ok := item.(map[string]any)
			if !ok || !isProductNode(node) {
				continue
			}
			if name, ok := node["name"].(string); ok && name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}

func isProductNode(node map[string]any) bool {
	t, ok := node["@type"].(string)
	return ok && t == "Product"
}

// scrapeClassTitles applies the ordered class-name heuristics and the
// product-link anchor fallback. Candidate titles must be 3-80 characters.
// The enough callback stops scraping early once the caller has plenty.
func scrapeClassTitles(doc *goquery.Document, add func(string), enough func() bool) {
	for _, pattern := range productClassPatterns {
		doc.Find("[class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			class, _ := s.Attr("class")
			if !pattern.MatchString(class) {
				return true
			}
			if title := strings.TrimSpace(s.Text()); titleLengthOK(title) {
				add(title)
			}
			return !enough()
		})
		if enough() {
			return
		}
	}

	doc.Find(`a[href*="/product/"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if title := strings.TrimSpace(s.Text()); titleLengthOK(title) {
			add(title)
		}
		return !enough()
	})
}

func titleLengthOK(title string) bool {
	n := utf8.RuneCountInString(title)
	return n >= 3 && n <= 80
}
