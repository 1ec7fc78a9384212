package echo

import (
	"github.com/iancoleman/orderedmap"
)

const (
	// WelcomeMessage is written under MessageKey in every response.
	WelcomeMessage = "Welcome to Azure Functions!"

	MessageKey = "message"
	ContentKey = "content"
)

// Response is the JSON object returned to the caller. Keys keep the order in
// which they were first written; writing an existing key replaces its value in
// place.
type Response struct {
	fields  *orderedmap.OrderedMap
	content ContentStatus
}

// NewResponse returns a response holding only the welcome message.
func NewResponse() *Response {
	r := &Response{fields: orderedmap.New(), content: ContentAbsent}
	r.Set(MessageKey, WelcomeMessage)
	return r
}

func (r *Response) Set(key string, value any) {
	r.fields.Set(key, value)
}

func (r *Response) Get(key string) (any, bool) {
	return r.fields.Get(key)
}

// Keys returns the response keys in serialization order.
func (r *Response) Keys() []string {
	return r.fields.Keys()
}

func (r *Response) Len() int {
	return len(r.fields.Keys())
}

// ContentStatus reports what happened to the request body.
func (r *Response) ContentStatus() ContentStatus {
	return r.content
}

func (r *Response) MarshalJSON() ([]byte, error) {
	return r.fields.MarshalJSON()
}
