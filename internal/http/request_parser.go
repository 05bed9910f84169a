package http

import (
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"kharcha/internal/core"
	"kharcha/internal/view"
)

const maxBodyBytes = 1 << 20

// RequestBodyParser reads a request body once and decodes it as a JSON
// object or as form-encoded data, whichever it looks like.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}

	if strings.HasPrefix(p.contentType, "application/json") || trimmed[0] == '{' {
		p.jsonData = make(map[string]interface{})
		p.err = json.Unmarshal([]byte(trimmed), &p.jsonData)
		return p.err
	}

	p.formData, p.err = url.ParseQuery(trimmed)
	return p.err
}

// Get returns a sanitised string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// NewTransaction maps the parsed fields to a core.NewTransaction. An
// amount that does not parse is passed on as NaN so validation reports the
// fields in their usual order.
func (p *RequestBodyParser) NewTransaction() core.NewTransaction {
	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		amount = math.NaN()
	}
	return core.NewTransaction{
		Type:     core.Type(p.Get("type")),
		Amount:   amount,
		Category: p.Get("category"),
		Date:     p.Get("date"),
		Note:     p.Get("note"),
	}
}

// ParseFilter reads the q, month and type query parameters.
func ParseFilter(query url.Values) view.Filter {
	return view.Filter{
		Search: sanitizeInput(query.Get("q")),
		Month:  strings.TrimSpace(query.Get("month")),
		Type:   strings.ToLower(strings.TrimSpace(query.Get("type"))),
	}
}
