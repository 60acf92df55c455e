package mailer

import (
	"bytes"
	"errors"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	md = goldmark.New(
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)

	policy     *bluemonday.Policy
	policyOnce sync.Once
)

// htmlPolicy allows the handful of elements plain-text markdown turns into.
func htmlPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.NewPolicy()
		policy.AllowStandardURLs()
		policy.AllowElements(
			"p", "br",
			"strong", "b", "em", "i",
			"ul", "ol", "li",
			"code", "pre", "blockquote",
		)
		policy.AllowAttrs("href").OnElements("a")
		policy.RequireNoFollowOnLinks(true)
	})
	return policy
}

// RenderHTML converts a plain-text body to a sanitized HTML alternative.
// Line breaks are preserved and "- " lines become list items.
func RenderHTML(text string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return "", errors.Join(ErrRenderFailed, err)
	}
	return htmlPolicy().Sanitize(buf.String()), nil
}
