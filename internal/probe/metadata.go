package probe

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// cdataRegex matches a JSON-LD body wrapped in a commented CDATA section
var cdataRegex = regexp.MustCompile(`(?s)^//<!\[CDATA\[\s*(.*?)\s*//\]\]>$`)

// pageMetadata holds the DOM-derived fields of a site record
type pageMetadata struct {
	metaTags       map[string]string
	structuredData []interface{}
}

// extractMetadata reads named meta tags and JSON-LD blocks from a page's HTML.
// Unparsable JSON-LD blocks are kept as {"raw": ..., "error": ...}.
func extractMetadata(html string) (pageMetadata, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return pageMetadata{}, err
	}

	meta := pageMetadata{
		metaTags:       make(map[string]string),
		structuredData: []interface{}{},
	}

	doc.Find("meta[name]").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		content, _ := s.Attr("content")
		meta.metaTags[name] = content
	})

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		meta.structuredData = append(meta.structuredData, parseJSONLD(s.Text()))
	})

	return meta, nil
}

func parseJSONLD(contents string) interface{} {
	body := strings.TrimSpace(contents)
	if match := cdataRegex.FindStringSubmatch(body); match != nil {
		body = match[1]
	}

	var value interface{}
	if err := json.Unmarshal([]byte(body), &value); err != nil {
		return map[string]interface{}{
			"raw":   contents,
			"error": err.Error(),
		}
	}
	return value
}
