package echo

import (
	"bytes"
	"encoding/json"
)

// ContentStatus is the outcome of parsing a request body.
type ContentStatus int

const (
	// ContentAbsent means the body was empty or the JSON literal null.
	ContentAbsent ContentStatus = iota
	ContentParsed
	// ContentInvalid means the body was present but not valid JSON.
	ContentInvalid
)

func (s ContentStatus) String() string {
	switch s {
	case ContentParsed:
		return "parsed"
	case ContentInvalid:
		return "invalid"
	default:
		return "absent"
	}
}

// Content holds a parsed request body. Value is only set when Status is
// ContentParsed.
type Content struct {
	Value  json.RawMessage
	Status ContentStatus
}

var jsonNull = []byte("null")

// ParseContent attempts to read body as a single JSON value. It never fails;
// a body that does not parse is reported as ContentInvalid.
func ParseContent(body []byte) Content {
	trimmed := bytes.TrimSpace(body)
	if len(body) == 0 {
		return Content{Status: ContentAbsent}
	}
	if !json.Valid(trimmed) {
		return Content{Status: ContentInvalid}
	}
	if bytes.Equal(trimmed, jsonNull) {
		return Content{Status: ContentAbsent}
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, trimmed); err != nil {
		return Content{Status: ContentInvalid}
	}
	return Content{Value: json.RawMessage(compact.Bytes()), Status: ContentParsed}
}
