package detect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/xtal-search/grader/internal/fetch"
	"github.com/xtal-search/grader/internal/types"
)

// Detection is the outcome of the full store detection pipeline.
type Detection struct {
	Platform       types.Platform
	Name           string
	SearchURL      string
	SearchProvider string
	ProductSamples []string
	HomepageHTML   string
	NormalizedURL  string
}

// Options configures the detection pipeline.
type Options struct {
	// UseBrowser enables a headless-browser re-fetch when the homepage
	// looks like a JavaScript-only shell.
	UseBrowser bool
	Verbose    bool
	Timeout    time.Duration
}

// Store runs the full detection pipeline against a live store URL: fetch
// the homepage, classify the platform, extract the name and product
// samples, and derive the platform search URL. A failed homepage fetch is
// fatal; the Shopify product-listing enrichment never is.
func Store(ctx context.Context, rawURL string, opts *Options) (*Detection, error) {
	if opts == nil {
		opts = &Options{}
	}

	normalized := fetch.NormalizeURL(rawURL)

	fetchOpts := fetch.DefaultOptions()
	if opts.Timeout > 0 {
		fetchOpts.Timeout = opts.Timeout
	}

	res, err := fetch.URL(ctx, normalized, fetchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch store homepage: %w", err)
	}

	html := res.Body
	if opts.UseBrowser && fetch.ShouldUseBrowser(html) {
		if rendered, berr := fetch.WithBrowser(ctx, normalized, fetchOpts.Timeout*2, opts.Verbose); berr == nil {
			html = rendered
		}
	}

	platform := Platform(html)
	name := ExtractStoreName(html, normalized)
	samples := ExtractProductSamples(html)
	provider := SearchProvider(html)

	origin := originOf(res.FinalURL, normalized)
	searchURL := ""
	if path := SearchPath(platform); path != "" {
		searchURL = origin + path
	}

	// Shopify homepages behind age gates or fully client-rendered themes
	// expose few or no product titles. The public product listing endpoint
	// fills the gap; any failure there yields an empty list, not an abort.
	if platform == types.PlatformShopify && len(samples) < 3 {
		if apiSamples := fetchShopifyProducts(ctx, origin); len(apiSamples) > len(samples) {
			samples = apiSamples
		}
	}

	return &Detection{
		Platform:       platform,
		Name:           name,
		SearchURL:      searchURL,
		SearchProvider: provider,
		ProductSamples: samples,
		HomepageHTML:   html,
		NormalizedURL:  normalized,
	}, nil
}

// originOf extracts scheme://host from the post-redirect URL, falling back
// to the normalized input.
func originOf(finalURL, fallback string) string {
	for _, candidate := range []string{finalURL, fallback} {
		if parsed, err := url.Parse(candidate); err == nil && parsed.Host != "" {
			return parsed.Scheme + "://" + parsed.Host
		}
	}
	return fallback
}

// fetchShopifyProducts pulls product titles from the public products.json
// listing. Best effort only: every failure path returns an empty slice.
func fetchShopifyProducts(ctx context.Context, origin string) []string {
	res, err := fetch.URL(ctx, origin+"/products.json?limit=15", fetch.DefaultOptions())
	if err != nil {
		return nil
	}

	var payload struct {
		Products []struct {
			Title string `json:"title"`
		} `json:"products"`
	}
	if err := json.Unmarshal([]byte(res.Body), &payload); err != nil {
		return nil
	}

	var titles []string
	for _, p := range payload.Products {
		if p.Title == "" {
			continue
		}
		titles = append(titles, p.Title)
		if len(titles) == maxProductSamples {
			break
		}
	}
	return titles
}
