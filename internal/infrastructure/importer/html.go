package importer

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pricelens/backend/internal/domain"
)

// ReadHTML extracts product listings from a product page. schema.org Product
// objects in JSON-LD blocks win; otherwise OpenGraph and product meta tags describe
// a single product. pageURL, when given, fills listings that carry no URL.
func ReadHTML(r io.Reader, pageURL string, d Defaults) ([]domain.ManualEntry, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	entries := jsonLDProducts(doc)
	if len(entries) == 0 {
		if e, ok := metaProduct(doc); ok {
			entries = append(entries, e)
		}
	}
	if len(entries) == 0 {
		return nil, ErrNoListings
	}

	for i := range entries {
		if entries[i].URL == "" {
			entries[i].URL = pageURL
		}
		d.apply(&entries[i])
	}
	return entries, nil
}

func jsonLDProducts(doc *goquery.Document) []domain.ManualEntry {
	var entries []domain.ManualEntry
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var data interface{}
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return
		}
		for _, obj := range productObjects(data) {
			if e, ok := productEntry(obj); ok {
				entries = append(entries, e)
			}
		}
	})
	return entries
}

// productObjects collects every object typed Product, looking through arrays and @graph.
func productObjects(data interface{}) []map[string]interface{} {
	switch v := data.(type) {
	case []interface{}:
		var out []map[string]interface{}
		for _, item := range v {
			out = append(out, productObjects(item)...)
		}
		return out
	case map[string]interface{}:
		if graph, ok := v["@graph"]; ok {
			return productObjects(graph)
		}
		if isType(v["@type"], "Product") {
			return []map[string]interface{}{v}
		}
	}
	return nil
}

func isType(t interface{}, want string) bool {
	switch v := t.(type) {
	case string:
		return v == want
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok && s == want {
				return true
			}
		}
	}
	return false
}

func productEntry(obj map[string]interface{}) (domain.ManualEntry, bool) {
	e := domain.ManualEntry{
		Name:     text(obj["name"]),
		Brand:    text(obj["brand"]),
		Category: text(obj["category"]),
		URL:      text(obj["url"]),
		ImageURL: text(obj["image"]),
		SizeHint: text(obj["size"]),
	}
	if e.Name == "" {
		return e, false
	}

	offer := firstObject(obj["offers"])
	if offer != nil {
		price := offer["price"]
		if price == nil {
			price = offer["lowPrice"]
		}
		e.Price = parsePrice(text(price))
		e.Currency = text(offer["priceCurrency"])
	}
	return e, true
}

// text renders a JSON-LD value as a string. Objects contribute their name or url,
// arrays their first element.
func text(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case map[string]interface{}:
		if name := text(t["name"]); name != "" {
			return name
		}
		return text(t["url"])
	case []interface{}:
		if len(t) > 0 {
			return text(t[0])
		}
	}
	return ""
}

func firstObject(v interface{}) map[string]interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return t
	case []interface{}:
		for _, item := range t {
			if obj, ok := item.(map[string]interface{}); ok {
				return obj
			}
		}
	}
	return nil
}

func meta(doc *goquery.Document, key string) string {
	sel := doc.Find(fmt.Sprintf(`meta[property=%q], meta[name=%q]`, key, key)).First()
	content, _ := sel.Attr("content")
	return strings.TrimSpace(content)
}

func metaProduct(doc *goquery.Document) (domain.ManualEntry, bool) {
	e := domain.ManualEntry{
		Name:     meta(doc, "og:title"),
		URL:      meta(doc, "og:url"),
		ImageURL: meta(doc, "og:image"),
		Brand:    meta(doc, "product:brand"),
		Category: meta(doc, "product:category"),
		Currency: meta(doc, "product:price:currency"),
		Price:    parsePrice(meta(doc, "product:price:amount")),
	}
	if e.Name == "" {
		e.Name = strings.TrimSpace(doc.Find("title").First().Text())
	}
	return e, e.Name != ""
}
