package anchor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlainText strips existing <a>...</a> anchors and all remaining tags from
// html, returning plaintext suitable for candidate extraction. Anchor
// contents are dropped entirely (not just the tag) because they are already
// linked and should not generate new candidate anchors.
func PlainText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("a").Remove()
	return strings.TrimSpace(doc.Text()), nil
}
