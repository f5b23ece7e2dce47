// Package sitemap renders the blog sitemap.xml from getSitemapBlogList output.
package sitemap

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/briangreenhill/wpcache/cache"
	"github.com/briangreenhill/wpcache/wordpress"
)

// Key is where the rendered sitemap is stored
const Key = "sitemap/blog.xml"

const xmlns = "http://www.sitemaps.org/schemas/sitemap/0.9"

// WordPress GMT timestamps carry no zone suffix
var gmtLayouts = []string{"2006-01-02T15:04:05", time.RFC3339}

type urlset struct {
	XMLName xml.Name `xml:"urlset"`
	Xmlns   string   `xml:"xmlns,attr"`
	URLs    []entry  `xml:"url"`
}

type entry struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// Build renders one <url> per post at {siteURL}/blog/{slug}. Entries whose
// modifiedGmt does not parse are listed without lastmod.
func Build(siteURL string, posts []wordpress.SitemapOutput) ([]byte, error) {
	base, err := url.Parse(strings.TrimRight(siteURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid site url %q", siteURL)
	}

	set := urlset{Xmlns: xmlns, URLs: make([]entry, 0, len(posts))}
	for _, p := range posts {
		if p.Slug == "" {
			continue
		}
		set.URLs = append(set.URLs, entry{
			Loc:     base.JoinPath("blog", p.Slug).String(),
			LastMod: lastMod(p.ModifiedGMT),
		})
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		return nil, fmt.Errorf("encode sitemap: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func lastMod(gmt string) string {
	for _, layout := range gmtLayouts {
		if t, err := time.Parse(layout, gmt); err == nil {
			return t.UTC().Format("2006-01-02")
		}
	}
	return ""
}

// Write builds the sitemap and stores it under Key
func Write(ctx context.Context, w cache.Writer, siteURL string, posts []wordpress.SitemapOutput) error {
	if len(posts) == 0 {
		return errors.New("no posts, refusing to write an empty sitemap")
	}
	body, err := Build(siteURL, posts)
	if err != nil {
		return err
	}
	return w.Put(ctx, &cache.Object{Key: Key, Body: body, ContentType: "application/xml"})
}
