// Package detect classifies storefront homepages: which e-commerce platform
// serves the store, what the store is called, and what it sells. Detection
// works on raw HTML strings so it stays testable without network access.
package detect

import (
	"strings"

	"github.com/xtal-search/grader/internal/types"
)

// signature pairs a platform with the markup fragments that betray it.
type signature struct {
	platform types.Platform
	patterns []string
}

// platformSignals is evaluated in order and the first platform with any
// matching pattern wins. The order is a deliberate priority: a page can
// carry several vendors' fingerprints at once (a Shopify CDN reference next
// to a stray "woocommerce" keyword), and earlier entries take precedence.
var platformSignals = []signature{
	{types.PlatformShopify, []string{"cdn.shopify.com", "shopify.theme", "shopify-section"}},
	{types.PlatformBigCommerce, []string{"bigcommerce.com", "data-stencil", "bc-sf-filter"}},
	{types.PlatformWooCommerce, []string{"woocommerce", "wp-content", "wc-block"}},
	{types.PlatformMagento, []string{"mage/cookies", "magento", "magento_ui"}},
	{types.PlatformSquarespace, []string{"squarespace.com", "static.squarespace"}},
}

// searchPaths maps platforms to their conventional search URL templates.
// The query string is appended URL-encoded at execution time.
var searchPaths = map[types.Platform]string{
	types.PlatformShopify:     "/search?q=",
	types.PlatformBigCommerce: "/search.php?search_query=",
	types.PlatformWooCommerce: "/?s=",
	types.PlatformMagento:     "/catalogsearch/result/?q=",
	types.PlatformSquarespace: "/search?q=",
}

// providerSignals identifies third-party search widgets embedded in the
// storefront, in priority order.
var providerSignals = []struct {
	provider string
	patterns []string
}{
	{"algolia", []string{"algolia.net", "algoliasearch", "data-algolia"}},
	{"klevu", []string{"klevu.com", "klevu-search"}},
	{"searchspring", []string{"searchspring.net", "searchspring.io"}},
	{"doofinder", []string{"doofinder.com", "doofinder-layer"}},
	{"findify", []string{"findify.io"}},
}

// Platform classifies HTML into a storefront platform. Pattern matching is
// case-insensitive; no match yields PlatformCustom.
func Platform(html string) types.Platform {
	lowered := strings.ToLower(html)
	for _, sig := range platformSignals {
		for _, pattern := range sig.patterns {
			if strings.Contains(lowered, pattern) {
				return sig.platform
			}
		}
	}
	return types.PlatformCustom
}

// SearchProvider identifies an embedded third-party search widget, or
// "native" when none is recognized.
func SearchProvider(html string) string {
	lowered := strings.ToLower(html)
	for _, sig := range providerSignals {
		for _, pattern := range sig.patterns {
			if strings.Contains(lowered, pattern) {
				return sig.provider
			}
		}
	}
	return "native"
}

// SearchPath returns the platform's conventional search URL template, or ""
// when the platform has no known template.
func SearchPath(platform types.Platform) string {
	return searchPaths[platform]
}
