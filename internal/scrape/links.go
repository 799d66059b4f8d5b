package scrape

import (
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"

	"github.com/webshelf/webshelf/internal/config"
	"github.com/webshelf/webshelf/internal/types"
)

var pageParamRe = regexp.MustCompile(`page=(\d+)`)

// CollectProductLinks scans a listing page for product-detail anchors.
// An anchor qualifies when its href starts with the product path prefix and
// its class carries the product-tile marker, which separates real product
// tiles from navigation chrome. Returned URLs are absolute and deduplicated.
func CollectProductLinks(resp *types.Response, baseURL string, cfg *config.ScrapeConfig) ([]string, error) {
	doc, err := resp.Document()
	if err != nil {
		return nil, &types.ExtractError{URL: resp.URL, Err: err}
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, &types.ExtractError{URL: resp.URL, Err: err}
	}

	marker := strings.ToLower(cfg.ProductLinkClass)
	seen := make(map[string]bool)
	var links []string

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if !strings.HasPrefix(href, cfg.ProductPathPrefix) {
			return
		}
		class, _ := sel.Attr("class")
		if !strings.Contains(strings.ToLower(class), marker) {
			return
		}
		parsed, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(parsed).String()
		if !seen[abs] {
			seen[abs] = true
			links = append(links, abs)
		}
	})

	sort.Strings(links)
	return links, nil
}

// MaxPage finds the last listing page by taking the maximum page=N counter
// embedded anywhere in the document's attributes. No match means a single
// page.
func MaxPage(body []byte) int {
	maxPage := 1
	scan := func(s string) {
		for _, m := range pageParamRe.FindAllStringSubmatch(s, -1) {
			if n, err := strconv.Atoi(m[1]); err == nil && n > maxPage {
				maxPage = n
			}
		}
	}

	doc, err := htmlquery.Parse(strings.NewReader(string(body)))
	if err != nil {
		// Unparseable markup still gets the raw scan.
		scan(string(body))
		return maxPage
	}
	for _, node := range htmlquery.Find(doc, "//@*") {
		scan(htmlquery.InnerText(node))
	}
	for _, node := range htmlquery.Find(doc, "//text()") {
		scan(htmlquery.InnerText(node))
	}
	return maxPage
}

// CollectionSlug derives a category slug from a collection URL: the last
// path segment after the collection path marker.
func CollectionSlug(href, collectionPath string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	path := u.Path
	idx := strings.LastIndex(path, collectionPath)
	if idx == -1 {
		return ""
	}
	return strings.Trim(path[idx+len(collectionPath):], "/")
}
