package main

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// longest snippet of markup quoted in a finding
const snippetLimit = 80

// findInjectedMarkup parses the page html and returns a description of
// every node that could execute script: inline scripts, event handler
// attributes and javascript: URLs
func findInjectedMarkup(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	findings := []string{}

	// inline scripts
	doc.Find("script:not([src])").Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}

		findings = append(findings, "inline <script>: "+truncate(text))
	})

	// event handlers and script URLs on any element
	doc.Find("*").Each(func(i int, s *goquery.Selection) {
		node := s.Get(0)
		for _, attr := range node.Attr {
			key := strings.ToLower(attr.Key)
			value := strings.TrimSpace(attr.Val)

			switch {
			case strings.HasPrefix(key, "on"):
				findings = append(findings, fmt.Sprintf("<%s> %s=%s", node.Data, key, truncate(value)))
			case (key == "href" || key == "src" || key == "action") &&
				strings.HasPrefix(strings.ToLower(value), "javascript:"):
				findings = append(findings, fmt.Sprintf("<%s> %s=%s", node.Data, key, truncate(value)))
			}
		}
	})

	return findings, nil
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= snippetLimit {
		return s
	}

	return string(r[:snippetLimit]) + "..."
}
