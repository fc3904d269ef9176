package process

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/series-spider/pkg/utils"
)

// LinkExtractor resolves the href attributes of the elements a CSS selector matches
type LinkExtractor struct {
	selector string
	matcher  cascadia.Selector
}

// NewLinkExtractor compiles selector once so a typo surfaces at load time instead of as an empty result
func NewLinkExtractor(selector string) (*LinkExtractor, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return nil, fmt.Errorf("%w: empty selector", utils.ErrConfigValidation)
	}
	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid selector '%s': %w", utils.ErrConfigValidation, selector, err)
	}
	return &LinkExtractor{selector: selector, matcher: matcher}, nil
}

// Selector returns the selector source text
func (e *LinkExtractor) Selector() string {
	return e.selector
}

// ResolveAll returns every matched href resolved against base, in document order.
// Elements without an href or with an unresolvable one are skipped.
func (e *LinkExtractor) ResolveAll(doc *goquery.Document, base *url.URL, log *logrus.Entry) []string {
	links := make([]string, 0)
	doc.FindMatcher(e.matcher).Each(func(_ int, element *goquery.Selection) {
		if resolved, ok := resolveHref(element, base, log); ok {
			links = append(links, resolved)
		}
	})
	log.Debugf("Selector '%s' yielded %d links", e.selector, len(links))
	return links
}

// ResolveFirst returns the first matched href that resolves against base, in document order
func (e *LinkExtractor) ResolveFirst(doc *goquery.Document, base *url.URL, log *logrus.Entry) (string, bool) {
	var link string
	found := false
	doc.FindMatcher(e.matcher).EachWithBreak(func(_ int, element *goquery.Selection) bool {
		link, found = resolveHref(element, base, log)
		return !found
	})
	return link, found
}

func resolveHref(element *goquery.Selection, base *url.URL, log *logrus.Entry) (string, bool) {
	href, exists := element.Attr("href")
	if !exists {
		return "", false
	}
	href = strings.TrimSpace(href)
	linkURL, err := base.Parse(href)
	if err != nil {
		// Index pages emit a bare '%' in titles like "100%"; browsers keep such links
		if escaped := escapeStrayPercent(href); escaped != href {
			linkURL, err = base.Parse(escaped)
		}
	}
	if err != nil {
		log.Debugf("Skipping unresolvable href '%s': %v", href, err)
		return "", false
	}
	return linkURL.String(), true
}

// escapeStrayPercent rewrites every '%' that does not start a valid escape as "%25"
func escapeStrayPercent(href string) string {
	var b strings.Builder
	for i := 0; i < len(href); i++ {
		if href[i] == '%' && (i+2 >= len(href) || !isHex(href[i+1]) || !isHex(href[i+2])) {
			b.WriteString("%25")
			continue
		}
		b.WriteByte(href[i])
	}
	return b.String()
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
