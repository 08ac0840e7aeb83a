package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xtal-search/grader/internal/types"
)

func TestPlatform_Shopify(t *testing.T) {
	tests := []string{
		`<script src="https://cdn.shopify.com/s/files/theme.js"></script>`,
		`<script>Shopify.theme = {id: 1};</script>`,
		`<div class="shopify-section header"></div>`,
	}
	for _, html := range tests {
		assert.Equal(t, types.PlatformShopify, Platform(html), html)
	}
}

func TestPlatform_KnownPlatforms(t *testing.T) {
	tests := []struct {
		html     string
		expected types.Platform
	}{
		{`<div data-stencil></div>`, types.PlatformBigCommerce},
		{`<link href="/wp-content/themes/store/style.css">`, types.PlatformWooCommerce},
		{`<script src="/mage/cookies.js"></script>`, types.PlatformMagento},
		{`<script src="https://static.squarespace.com/main.js"></script>`, types.PlatformSquarespace},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Platform(tt.html), tt.html)
	}
}

func TestPlatform_CaseInsensitive(t *testing.T) {
	assert.Equal(t, types.PlatformShopify, Platform(`<script src="https://CDN.SHOPIFY.COM/x.js">`))
	assert.Equal(t, types.PlatformWooCommerce, Platform(`<body class="WooCommerce">`))
}

func TestPlatform_NoMatch(t *testing.T) {
	assert.Equal(t, types.PlatformCustom, Platform(""))
	assert.Equal(t, types.PlatformCustom, Platform("<html><body>Plain store</body></html>"))
}

func TestPlatform_PriorityOrderWins(t *testing.T) {
	// Shopify CDN reference alongside a WooCommerce keyword: shopify is
	// registered earlier so it wins.
	html := `<script src="https://cdn.shopify.com/theme.js"></script>
		<p>migrated from woocommerce</p>`
	assert.Equal(t, types.PlatformShopify, Platform(html))

	// Flipped registration order does not apply: woocommerce marker with a
	// later-priority magento keyword still yields woocommerce.
	html = `<link href="/wp-content/style.css"><p>magento import</p>`
	assert.Equal(t, types.PlatformWooCommerce, Platform(html))
}

func TestSearchProvider(t *testing.T) {
	assert.Equal(t, "algolia", SearchProvider(`<script src="https://x.algolia.net/1.js">`))
	assert.Equal(t, "klevu", SearchProvider(`<script src="https://js.klevu.com/core.js">`))
	assert.Equal(t, "native", SearchProvider(`<html><body></body></html>`))
}

func TestSearchPath(t *testing.T) {
	assert.Equal(t, "/search?q=", SearchPath(types.PlatformShopify))
	assert.Equal(t, "/catalogsearch/result/?q=", SearchPath(types.PlatformMagento))
	assert.Equal(t, "", SearchPath(types.PlatformCustom))
}
