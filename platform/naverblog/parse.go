package naverblog

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/domain"
)

// parsePosts extracts the leading blog results from a search page. Posts
// are anchors carrying the title_link class; document order is rank
// order.
func parsePosts(r io.Reader, limit int) ([]domain.Post, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var posts []domain.Post
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(posts) >= limit {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" && hasClass(n, "title_link") {
			href := attr(n, "href")
			if href != "" {
				posts = append(posts, domain.Post{
					Title: strings.TrimSpace(textContent(n)),
					URL:   href,
				})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return posts, nil
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// normalizeURL reduces the many spellings of a Naver blog post URL to
// one comparable form: https host without the mobile prefix, the
// /blogId/logNo path (PostView links rewritten), no trailing slash, no
// query or fragment.
func normalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}

	host := strings.ToLower(u.Hostname())
	if host == "m.blog.naver.com" {
		host = "blog.naver.com"
	}

	path := u.Path
	switch path {
	case "/PostView.naver", "/PostView.nhn":
		q := u.Query()
		if id, no := q.Get("blogId"), q.Get("logNo"); id != "" && no != "" {
			path = "/" + id + "/" + no
		}
	}
	path = strings.TrimSuffix(path, "/")

	return host + path
}
