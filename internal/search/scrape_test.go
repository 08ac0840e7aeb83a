package search

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xtal-search/grader/internal/types"
)

func titlesOf(results []types.SearchResult) []string {
	titles := make([]string, 0, len(results))
	for _, r := range results {
		titles = append(titles, r.Title)
	}
	return titles
}

func TestScrapeResults_HighConfidenceTitles(t *testing.T) {
	html := `<html><body>
		<div class="search-results">
			<h3 class="product-title">Espresso Grinder</h3>
			<h3 class="product_title">Pour Over Kettle</h3>
			<h2 class="card-title">French Press</h2>
		</div>
	</body></html>`

	results, count := scrapeResults(html)
	titles := titlesOf(results)
	assert.Contains(t, titles, "Espresso Grinder")
	assert.Contains(t, titles, "Pour Over Kettle")
	assert.Contains(t, titles, "French Press")
	assert.Equal(t, len(results), count)
}

func TestScrapeResults_CountPatternWins(t *testing.T) {
	html := `<html><body>
		<p>24 results found for "kettle"</p>
		<div class="search-results">
			<h3 class="product-title">Pour Over Kettle</h3>
		</div>
	</body></html>`

	results, count := scrapeResults(html)
	assert.Len(t, results, 1)
	assert.Equal(t, 24, count)
}

func TestScrapeResults_WooCommerceShowingCount(t *testing.T) {
	html := `<html><body>
		<div class="woocommerce">
			<p>Showing all 7 results</p>
			<h3 class="product-title">Linen Apron</h3>
		</div>
	</body></html>`

	_, count := scrapeResults(html)
	assert.Equal(t, 7, count)
}

func TestScrapeResults_ProductLinksOnlyInsideContainer(t *testing.T) {
	// Product links live inside a recognized results container, so the
	// low-confidence href fallback may use them.
	scoped := `<html><body>
		<nav><a href="/product/nav-item">Nav Item</a></nav>
		<div class="search-results">
			<a href="/product/walnut-desk">Walnut Desk</a>
			<a href="/products/oak-shelf">Oak Shelf</a>
		</div>
	</body></html>`

	results, _ := scrapeResults(scoped)
	titles := titlesOf(results)
	assert.Contains(t, titles, "Walnut Desk")
	assert.Contains(t, titles, "Oak Shelf")
	assert.NotContains(t, titles, "Nav Item")

	// Without any recognizable container the href fallback stays off and
	// the sitewide links are ignored.
	unscoped := `<html><body>
		<nav><a href="/product/nav-item">Nav Item</a></nav>
		<a href="/product/walnut-desk">Walnut Desk</a>
	</body></html>`

	results, count := scrapeResults(unscoped)
	assert.Empty(t, results)
	assert.Equal(t, 0, count)
}

func TestScrapeResults_DeduplicatesAndCaps(t *testing.T) {
	html := `<html><body><div class="search-results">`
	for i := 0; i < 3; i++ {
		html += `<h3 class="product-title">Same Chair</h3>`
	}
	for _, name := range []string{"One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine", "Ten", "Eleven"} {
		html += `<h3 class="product-title">Chair ` + name + `</h3>`
	}
	html += `</div></body></html>`

	results, _ := scrapeResults(html)
	assert.LessOrEqual(t, len(results), maxScrapedResults)

	seen := map[string]int{}
	for _, r := range results {
		seen[r.Title]++
	}
	assert.Equal(t, 1, seen["Same Chair"])
}

func TestScrapeResults_EmptyPage(t *testing.T) {
	results, count := scrapeResults("<html><body><p>No results for your search.</p></body></html>")
	assert.Empty(t, results)
	assert.Equal(t, 0, count)
}
