package ops

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Format controls the response rendering format.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

type config struct {
	format    Format
	intensity func() float64
	allowKeys map[string]bool
}

// Option configures any ops handler.
type Option func(*config)

// WithDefaultFormat sets the response format used when the request has no ?format= query.
// Default is FormatText.
func WithDefaultFormat(f Format) Option {
	return func(c *config) { c.format = f }
}

func applyOptions(opts []Option) config {
	cfg := config{format: FormatText}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.format != FormatText && cfg.format != FormatJSON {
		cfg.format = FormatText
	}
	return cfg
}

func formatFromRequest(r *http.Request, def Format) Format {
	if r == nil || r.URL == nil {
		return def
	}
	switch r.URL.Query().Get("format") {
	case "json":
		return FormatJSON
	case "text":
		return FormatText
	default:
		return def
	}
}

// errorResponse is the JSON shape of every error.
type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// write renders body as JSON, or text() as plain text. HEAD gets headers only.
func write(w http.ResponseWriter, r *http.Request, f Format, code int, body any, text func(*strings.Builder)) {
	w.Header().Set("Cache-Control", "no-store")
	switch f {
	case FormatJSON:
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(code)
		if r.Method == http.MethodHead {
			return
		}
		_ = json.NewEncoder(w).Encode(body)
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(code)
		if r.Method == http.MethodHead {
			return
		}
		var b strings.Builder
		text(&b)
		_, _ = w.Write([]byte(b.String()))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, f Format, code int, msg string) {
	if msg == "" {
		msg = "error"
	}
	write(w, r, f, code, errorResponse{OK: false, Error: msg}, func(b *strings.Builder) {
		b.WriteString(msg)
		b.WriteByte('\n')
	})
}

// allowRead rejects anything but GET/HEAD with 405. It reports whether to continue.
func allowRead(w http.ResponseWriter, r *http.Request, f Format) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return true
	}
	w.Header().Set("Allow", "GET, HEAD")
	writeError(w, r, f, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

// allowWrite rejects anything but POST with 405. It reports whether to continue.
func allowWrite(w http.ResponseWriter, r *http.Request, f Format) bool {
	if r.Method == http.MethodPost {
		return true
	}
	w.Header().Set("Allow", "POST")
	writeError(w, r, f, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

// line writes fields joined by tabs, ending with a newline. Tabs and newlines inside a field
// are replaced by spaces.
func line(b *strings.Builder, fields ...string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte('\t')
		}
		b.WriteString(textFieldReplacer.Replace(f))
	}
	b.WriteByte('\n')
}

var textFieldReplacer = strings.NewReplacer("\t", " ", "\n", " ", "\r", " ")

func queryValue(r *http.Request, name string) (string, bool) {
	if r == nil || r.URL == nil {
		return "", false
	}
	vs, ok := r.URL.Query()[name]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}
