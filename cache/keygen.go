package cache

import (
	"strings"

	"github.com/briangreenhill/wpcache/wordpress"
)

const imagePrefix = "images/"

// ImageKey derives the store key of a mirrored image from its htmlSrc:
// the domain placeholder is replaced by the images/ prefix.
func ImageKey(htmlSrc string) string {
	rest := strings.Replace(htmlSrc, wordpress.DomainPlaceholder, "", 1)
	return imagePrefix + strings.TrimLeft(rest, "/")
}
