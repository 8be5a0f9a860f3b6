package cache

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Signature builds a canonical cache key from a scope, a page number and a
// filter set. Keys are sorted and empty values dropped, so two requests that
// mean the same thing produce the same signature.
func Signature(scope string, page int, filters map[string]string) string {
	parts := make([]string, 0, len(filters)+1)
	parts = append(parts, "page="+strconv.Itoa(page))
	for k, v := range filters {
		if v == "" {
			continue
		}
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(v))
	}
	sort.Strings(parts)
	return scope + ":" + strings.Join(parts, "|")
}

func flightKey(gen, ver uint64, signature string) string {
	return strconv.FormatUint(gen, 10) + "." + strconv.FormatUint(ver, 10) + "#" + signature
}
