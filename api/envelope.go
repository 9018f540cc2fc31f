package api

import (
	"encoding/json"
	"strconv"
)

// CodeSuccess is the envelope code the backend uses for a successful call.
const CodeSuccess = 1000

// Envelope is the uniform {code, message, result} body of every endpoint.
type Envelope[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

func (e Envelope[T]) OK() bool {
	return e.Code == CodeSuccess
}

// Page is the result shape of paginated list endpoints.
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalPages    int   `json:"totalPages"`
	TotalElements int64 `json:"totalElements"`
	Number        int   `json:"number"`
}

// PageBase is an endpoint's page numbering convention. Backends differ per
// endpoint, so each endpoint declares its own.
type PageBase int

const (
	ZeroBased PageBase = 0
	OneBased  PageBase = 1
)

// Param converts a zero-based client page index into the endpoint's value.
func (b PageBase) Param(index int) string {
	return strconv.Itoa(index + int(b))
}

// Index converts the endpoint's page number back into a zero-based index.
func (b PageBase) Index(number int) int {
	return number - int(b)
}

// rawEnvelope defers decoding of result until the code has been checked.
type rawEnvelope = Envelope[json.RawMessage]
