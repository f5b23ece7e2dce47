package resolvers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/wpcache/cache"
	"github.com/briangreenhill/wpcache/internal/refresh"
	"github.com/briangreenhill/wpcache/wordpress"
)

const defaultImageBase = "/images"

// commonArgs are accepted by every field
type commonArgs struct {
	ForceFetch  bool   `json:"forceFetch"`
	URLOverride string `json:"urlOverride"`
}

func decodeArgs(field string, raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidArgs, field, err)
	}
	return nil
}

// imageBase is what replaces the domain placeholder in returned HTML and file URLs
func imageBase(urlOverride string) string {
	if o := strings.Trim(urlOverride, "/"); o != "" {
		return o
	}
	return defaultImageBase
}

func rewrite(s, base string) string {
	return strings.ReplaceAll(s, wordpress.DomainPlaceholder, base)
}

// ContentPage resolves getContentPage
type ContentPage struct{}

type contentPageArgs struct {
	commonArgs
	Path string `json:"path"`
}

func (ContentPage) Name() string { return "getContentPage" }

func (c ContentPage) Resolve(ctx context.Context, l *Loader, raw json.RawMessage) (any, error) {
	var args contentPageArgs
	if err := decodeArgs(c.Name(), raw, &args); err != nil {
		return nil, err
	}

	resp, err := l.Load(ctx, wordpress.PagePayload{Path: args.Path}, args.ForceFetch)
	if err != nil {
		return nil, err
	}
	page, ok := resp.(*wordpress.Page)
	if !ok {
		return nil, fmt.Errorf("%w: %s: got %T", wordpress.ErrShape, c.Name(), resp)
	}
	return wordpress.PageOutput{BodyHTML: rewrite(*page.BodyHTML, imageBase(args.URLOverride))}, nil
}

// BlogList resolves getBlogList
type BlogList struct{}

type blogListArgs struct {
	commonArgs
	Page     int    `json:"page"`
	Category string `json:"category"`
}

func (BlogList) Name() string { return "getBlogList" }

func (b BlogList) Resolve(ctx context.Context, l *Loader, raw json.RawMessage) (any, error) {
	var args blogListArgs
	if err := decodeArgs(b.Name(), raw, &args); err != nil {
		return nil, err
	}
	if args.Page == 0 {
		args.Page = 1
	}

	resp, err := l.Load(ctx, wordpress.BlogListPayload{Page: args.Page, Category: args.Category}, args.ForceFetch)
	if err != nil {
		return nil, err
	}
	list, ok := resp.(*wordpress.BlogList)
	if !ok {
		return nil, fmt.Errorf("%w: %s: got %T", wordpress.ErrShape, b.Name(), resp)
	}

	base := imageBase(args.URLOverride)
	out := wordpress.BlogListOutput{
		PageList:   make([]wordpress.BlogListItemOutput, 0, len(list.PageList)),
		PageTotals: *list.PageTotals,
	}
	for _, it := range list.PageList {
		out.PageList = append(out.PageList, wordpress.BlogListItemOutput{
			Slug:        it.Slug,
			Title:       it.Title,
			ExcerptHTML: rewrite(it.ExcerptHTML, base),
			File:        rewrite(it.File, base),
		})
	}
	return out, nil
}

// BlogCategoryList resolves getBlogCategoryList across all category pages
type BlogCategoryList struct{}

func (BlogCategoryList) Name() string { return "getBlogCategoryList" }

func (c BlogCategoryList) Resolve(ctx context.Context, l *Loader, raw json.RawMessage) (any, error) {
	var args commonArgs
	if err := decodeArgs(c.Name(), raw, &args); err != nil {
		return nil, err
	}

	out := make([]wordpress.CategoryOutput, 0)
	err := paginate(ctx, c.Name(), func(page int) (int, error) {
		resp, err := l.Load(ctx, wordpress.CategoryPayload{Page: page}, args.ForceFetch)
		if err != nil {
			return 0, err
		}
		list, ok := resp.(wordpress.BlogCategoryList)
		if !ok {
			return 0, fmt.Errorf("%w: got %T", wordpress.ErrShape, resp)
		}
		for _, cat := range list {
			out = append(out, wordpress.CategoryOutput{Slug: cat.Slug, Name: cat.Name, ID: cat.ID, Count: cat.Count})
		}
		return len(list), nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SitemapBlogList resolves getSitemapBlogList across all sitemap pages
type SitemapBlogList struct{}

func (SitemapBlogList) Name() string { return "getSitemapBlogList" }

func (s SitemapBlogList) Resolve(ctx context.Context, l *Loader, raw json.RawMessage) (any, error) {
	var args commonArgs
	if err := decodeArgs(s.Name(), raw, &args); err != nil {
		return nil, err
	}

	out := make([]wordpress.SitemapOutput, 0)
	err := paginate(ctx, s.Name(), func(page int) (int, error) {
		resp, err := l.Load(ctx, wordpress.SitemapBlogListPayload{Page: page}, args.ForceFetch)
		if err != nil {
			return 0, err
		}
		list, ok := resp.(wordpress.SitemapBlogList)
		if !ok {
			return 0, fmt.Errorf("%w: got %T", wordpress.ErrShape, resp)
		}
		for _, e := range list {
			out = append(out, wordpress.SitemapOutput{Slug: e.Slug, ModifiedGMT: e.ModifiedGMT})
		}
		return len(list), nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// paginate calls load for pages 1, 2, ... until a page has no items. A failed
// page ends the loop and keeps what was collected; only a disabled refresh
// publisher is returned as an error.
func paginate(ctx context.Context, field string, load func(page int) (int, error)) error {
	log := zerolog.Ctx(ctx)
	for page := 1; ; page++ {
		n, err := load(page)
		switch {
		case errors.Is(err, refresh.ErrDisabled), errors.Is(err, cache.ErrCorrupt):
			return err
		case errors.Is(err, wordpress.ErrNotFound):
			log.Debug().Str("field", field).Int("page", page).Msg("pagination reached missing page")
			return nil
		case err != nil:
			log.Warn().Err(err).Str("field", field).Int("page", page).Msg("pagination truncated")
			return nil
		case n == 0:
			return nil
		}
	}
}
