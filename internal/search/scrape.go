package search

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/xtal-search/grader/internal/types"
)

// maxScrapedResults caps how many titles one results page contributes.
const maxScrapedResults = 10

// containerSelectors isolate the search-results region of a page before
// title scraping, so sitewide navigation product links don't pollute the
// results. Evaluated in order, first non-empty match wins.
var containerSelectors = []string{
	"div.woocommerce, section.woocommerce, main.woocommerce",
	"[id*='search-result'], [class*='search-result'], [id*='search_result'], [class*='search_result']",
	"[id*='results-container'], [class*='results-container'], [id*='result-container'], [class*='result-container']",
	"[id*='product-list'], [class*='product-list'], [id*='product_list'], [class*='product_list']",
	"[id*='productGrid'], [class*='productGrid']",
	"[id*='products'], [class*='products']",
	"div.search.results, div.search-results",
	"main",
}

// containerSanity gates container scoping: a matched container with no
// product-like content is treated as a miss.
var containerSanity = regexp.MustCompile(`(?i)product|item|result`)

// highConfidenceTitles are class-name conventions specific enough to trust
// anywhere on the page.
var highConfidenceTitles = []*regexp.Regexp{
	regexp.MustCompile(`(?i)product[_-]?title`),
	regexp.MustCompile(`(?i)product[_-]?name`),
	regexp.MustCompile(`(?i)card[_-]?title`),
	regexp.MustCompile(`(?i)search[_-]?result[_-]?title`),
	regexp.MustCompile(`(?i)entry[_-]?title`),
}

// lowConfidenceHrefs match product detail links. Safe only inside a scoped
// results container; across a whole page they match menus and footers.
var lowConfidenceHrefs = []string{
	`a[href*="/product/"]`,
	`a[href*="/products/"]`,
}

// countPatterns recognize "N results" style text. The first pattern with a
// numeric match wins.
var countPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+)\s*results?\s*(?:found|for)`),
	regexp.MustCompile(`(?i)showing\s*\d+\s*(?:–|-)\s*\d+\s*of\s*(\d+)`),
	regexp.MustCompile(`(?i)(\d+)\s*products?\s*found`),
	regexp.MustCompile(`(?i)showing\s+(?:all\s+)?(\d+)\s+results?`),
	regexp.MustCompile(`(?im)(\d+)\s*(?:items?|products?)\s*$`),
}

// scrapeResults extracts product titles and a result count from a search
// results page.
func scrapeResults(html string) ([]types.SearchResult, int) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, 0
	}

	scoped, isScoped := resultsSection(doc)

	var results []types.SearchResult
	seen := make(map[string]bool)
	add := func(title string) {
		title = strings.TrimSpace(title)
		if n := utf8.RuneCountInString(title); n < 3 || n > 100 {
			return
		}
		if seen[title] {
			return
		}
		seen[title] = true
		results = append(results, types.SearchResult{Title: title})
	}

	for _, pattern := range highConfidenceTitles {
		scoped.Find("[class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if class, _ := s.Attr("class"); pattern.MatchString(class) {
				add(s.Text())
			}
			return len(results) < maxScrapedResults
		})
		if len(results) >= maxScrapedResults {
			break
		}
	}

	if len(results) == 0 && isScoped {
		for _, selector := range lowConfidenceHrefs {
			scoped.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
				add(s.Text())
				return len(results) < maxScrapedResults
			})
			if len(results) >= maxScrapedResults {
				break
			}
		}
	}

	if len(results) > maxScrapedResults {
		results = results[:maxScrapedResults]
	}

	count := len(results)
	for _, pattern := range countPatterns {
		if m := pattern.FindStringSubmatch(html); m != nil {
			if parsed, err := strconv.Atoi(m[1]); err == nil {
				count = parsed
				break
			}
		}
	}

	return results, count
}

// resultsSection tries to narrow the document to its search-results
// container. Returns the whole document selection when no container
// matches.
func resultsSection(doc *goquery.Document) (*goquery.Selection, bool) {
	for _, selector := range containerSelectors {
		sel := doc.Find(selector)
		if sel.Length() == 0 {
			continue
		}
		first := sel.First()
		if inner, err := first.Html(); err == nil && containerSanity.MatchString(inner) {
			return first, true
		}
	}
	return doc.Selection, false
}
