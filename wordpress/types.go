// Package wordpress defines the request and response shapes exchanged with the
// upstream content fetcher, and the validated decoding applied to them.
package wordpress

import (
	"fmt"
	"strings"
)

// DomainPlaceholder is embedded by the fetcher wherever an uploaded asset URL
// would contain the WordPress host.
const DomainPlaceholder = "$$DOMAIN$$"

// Target discriminates fetcher payloads and selects the expected response variant.
type Target string

const (
	TargetPage            Target = "page"
	TargetBlogList        Target = "bloglist"
	TargetCategory        Target = "category"
	TargetSitemapBlogList Target = "sitemap_bloglist"
)

// Payload is the request sent to the fetcher function.
type Payload interface {
	Target() Target
	// CacheKey is deterministic in the payload parameters.
	CacheKey() string
}

type PagePayload struct {
	Path string `json:"path" validate:"required"`
}

func (PagePayload) Target() Target { return TargetPage }

func (p PagePayload) CacheKey() string {
	return fmt.Sprintf("pages/%s.json", strings.Trim(p.Path, "/"))
}

type BlogListPayload struct {
	Page     int    `json:"page" validate:"min=1"`
	Category string `json:"category,omitempty"`
}

func (BlogListPayload) Target() Target { return TargetBlogList }

func (p BlogListPayload) CacheKey() string {
	if c := strings.Trim(p.Category, "/"); c != "" {
		return fmt.Sprintf("list/%s/%d.json", c, p.Page)
	}
	return fmt.Sprintf("list/%d.json", p.Page)
}

type CategoryPayload struct {
	Page int `json:"page" validate:"min=1"`
}

func (CategoryPayload) Target() Target { return TargetCategory }

func (p CategoryPayload) CacheKey() string { return fmt.Sprintf("category/%d.json", p.Page) }

type SitemapBlogListPayload struct {
	Page int `json:"page" validate:"min=1"`
}

func (SitemapBlogListPayload) Target() Target { return TargetSitemapBlogList }

func (p SitemapBlogListPayload) CacheKey() string { return fmt.Sprintf("sitemap/%d.json", p.Page) }

// Response is one of the fetcher response variants.
type Response interface {
	Target() Target
}

// ImageCarrier is implemented by variants whose images must be mirrored.
type ImageCarrier interface {
	ImageRefs() []Image
}

// Image references an uploaded asset; HTMLSrc carries DomainPlaceholder.
type Image struct {
	URL     string `json:"url" validate:"required"`
	HTMLSrc string `json:"htmlSrc" validate:"required"`
}

type Page struct {
	Title        string   `json:"title"`
	Author       string   `json:"author"`
	Categories   []string `json:"categories"`
	ExcerptHTML  string   `json:"excerptHtml"`
	PublishedGMT string   `json:"publishedGmt"`
	ModifiedGMT  string   `json:"modifiedGmt"`
	Slug         string   `json:"slug" validate:"required"`
	BodyHTML     *string  `json:"bodyHtml" validate:"required"`
	Images       []Image  `json:"images" validate:"required,dive"`
}

func (*Page) Target() Target      { return TargetPage }
func (p *Page) ImageRefs() []Image { return p.Images }

type BlogListItem struct {
	Slug        string `json:"slug" validate:"required"`
	Title       string `json:"title"`
	ExcerptHTML string `json:"excerptHtml"`
	File        string `json:"file"`
}

type PageTotals struct {
	PostTotal int `json:"postTotal" validate:"min=0"`
	PostPages int `json:"postPages" validate:"min=0"`
}

type BlogList struct {
	PageList   []BlogListItem `json:"pageList" validate:"required,dive"`
	PageTotals *PageTotals    `json:"pageTotals" validate:"required"`
	Images     []Image        `json:"images" validate:"required,dive"`
}

func (*BlogList) Target() Target      { return TargetBlogList }
func (b *BlogList) ImageRefs() []Image { return b.Images }

type Category struct {
	ID    int    `json:"id" validate:"required"`
	Name  string `json:"name" validate:"required"`
	Slug  string `json:"slug" validate:"required"`
	Count int    `json:"count"`
}

type BlogCategoryList []Category

func (BlogCategoryList) Target() Target { return TargetCategory }

type SitemapEntry struct {
	Slug        string `json:"slug" validate:"required"`
	ModifiedGMT string `json:"modifiedGmt" validate:"required"`
}

type SitemapBlogList []SitemapEntry

func (SitemapBlogList) Target() Target { return TargetSitemapBlogList }

// ResponseError is returned by the fetcher when the upstream call failed.
type ResponseError struct {
	Error *string `json:"error"`
}

// Outputs returned to callers after post-processing.

type PageOutput struct {
	BodyHTML string `json:"bodyHtml" validate:"noplaceholder"`
}

type BlogListItemOutput struct {
	Slug        string `json:"slug" validate:"required"`
	Title       string `json:"title"`
	ExcerptHTML string `json:"excerptHtml"`
	File        string `json:"file" validate:"noplaceholder"`
}

type BlogListOutput struct {
	PageList   []BlogListItemOutput `json:"pageList" validate:"required,dive"`
	PageTotals PageTotals           `json:"pageTotals"`
}

type CategoryOutput struct {
	Slug  string `json:"slug" validate:"required"`
	Name  string `json:"name" validate:"required"`
	ID    int    `json:"id" validate:"required"`
	Count int    `json:"count"`
}

type SitemapOutput struct {
	Slug        string `json:"slug" validate:"required"`
	ModifiedGMT string `json:"modifiedGmt" validate:"required"`
}
