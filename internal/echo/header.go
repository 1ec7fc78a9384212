package echo

import (
	"net/http"
	"sort"
	"strings"
)

// Header is a single inbound header as the host represents it.
type Header struct {
	Name  string
	Value string
}

// HeadersFromHTTP flattens h into one entry per name, joining repeated values
// with a comma. Names are sorted since http.Header does not keep arrival order,
// and they come out in canonical form (x-test becomes X-Test) because net/http
// canonicalizes them on receipt.
func HeadersFromHTTP(h http.Header) []Header {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	headers := make([]Header, 0, len(names))
	for _, name := range names {
		headers = append(headers, Header{Name: name, Value: strings.Join(h[name], ",")})
	}
	return headers
}

// foldHeaders merges names that differ only by case. The merged entry keeps the
// position of the first occurrence and takes the name and value of the last.
func foldHeaders(headers []Header) []Header {
	folded := make([]Header, 0, len(headers))
	index := make(map[string]int, len(headers))
	for _, h := range headers {
		key := strings.ToLower(h.Name)
		if i, ok := index[key]; ok {
			folded[i] = h
			continue
		}
		index[key] = len(folded)
		folded = append(folded, h)
	}
	return folded
}
