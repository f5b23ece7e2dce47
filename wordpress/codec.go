package wordpress

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrShape is returned when data does not match the expected variant.
	ErrShape = errors.New("shape mismatch")
	// ErrNotFound is the upstream "invalid page number" condition.
	ErrNotFound = errors.New("content not found")
	// ErrUpstream wraps any other error string reported by the fetcher.
	ErrUpstream = errors.New("unclassified error")
)

// notFoundCodes are the upstream error strings that mean the requested page does not exist.
var notFoundCodes = map[string]bool{
	"rest_post_invalid_page_number": true,
	"rest_term_invalid_page_number": true,
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("noplaceholder", func(fl validator.FieldLevel) bool {
		return !strings.Contains(fl.Field().String(), DomainPlaceholder)
	})
	return v
}

// ValidatePayload checks a payload before it is dispatched to the fetcher.
func ValidatePayload(p Payload) error {
	if p == nil {
		return fmt.Errorf("%w: nil payload", ErrShape)
	}
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrShape, p.Target(), err)
	}
	return nil
}

// DecodeResponse decodes raw into the variant expected for target.
func DecodeResponse(target Target, raw []byte) (Response, error) {
	switch target {
	case TargetPage:
		var p Page
		if err := decodeStruct(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: page: %v", ErrShape, err)
		}
		return &p, nil
	case TargetBlogList:
		var b BlogList
		if err := decodeStruct(raw, &b); err != nil {
			return nil, fmt.Errorf("%w: bloglist: %v", ErrShape, err)
		}
		return &b, nil
	case TargetCategory:
		var l BlogCategoryList
		if err := decodeList(raw, &l); err != nil {
			return nil, fmt.Errorf("%w: category: %v", ErrShape, err)
		}
		return l, nil
	case TargetSitemapBlogList:
		var l SitemapBlogList
		if err := decodeList(raw, &l); err != nil {
			return nil, fmt.Errorf("%w: sitemap_bloglist: %v", ErrShape, err)
		}
		return l, nil
	default:
		return nil, fmt.Errorf("%w: unknown target %q", ErrShape, target)
	}
}

// DecodeFetcherResult decodes a raw fetcher reply, classifying error replies
// before attempting the variant expected for target.
func DecodeFetcherResult(target Target, raw []byte) (Response, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var re ResponseError
		if err := json.Unmarshal(trimmed, &re); err == nil && re.Error != nil {
			if notFoundCodes[*re.Error] {
				return nil, fmt.Errorf("%w: %s", ErrNotFound, *re.Error)
			}
			return nil, fmt.Errorf("%w: %s", ErrUpstream, *re.Error)
		}
	}
	return DecodeResponse(target, trimmed)
}

// ValidateOutput checks post-processed output before it leaves the handler.
func ValidateOutput(out any) error {
	if out == nil {
		return fmt.Errorf("%w: nil output", ErrShape)
	}
	rv := reflect.ValueOf(out)
	var err error
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return fmt.Errorf("%w: nil output list", ErrShape)
		}
		err = validate.Var(out, "dive")
	default:
		err = validate.Struct(out)
	}
	if err != nil {
		return fmt.Errorf("%w: output: %v", ErrShape, err)
	}
	return nil
}

func decodeStruct(raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return err
	}
	return validate.Struct(v)
}

// decodeList decodes into a pointer to a slice; JSON null is rejected.
func decodeList(raw []byte, ptr any) error {
	if err := json.Unmarshal(raw, ptr); err != nil {
		return err
	}
	list := reflect.ValueOf(ptr).Elem()
	if list.IsNil() {
		return errors.New("expected a list")
	}
	return validate.Var(list.Interface(), "dive")
}
