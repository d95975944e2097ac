// utils/safelog.go
// ============================================================================
// SAFE LOGGING - masks personal data in production logs
// ============================================================================

package utils

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// ============================================================================
// CONFIGURATION
// ============================================================================

// IsProduction reports whether the given environment markers describe a
// production deployment. In production, sensitive data is masked.
func IsProduction(ginMode, environment string) bool {
	env := strings.ToLower(environment)
	return ginMode == "release" || env == "production" || env == "prod"
}

// ParseLevel maps LOG_LEVEL values (DEBUG, INFO, WARN, ERROR) to slog levels.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the application logger. Production output is JSON and
// passes through the masking handler; development output is plain text.
func NewLogger(w io.Writer, level slog.Level, production bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if !production {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(&maskingHandler{next: slog.NewJSONHandler(w, opts)})
}

// ============================================================================
// MASKING PATTERNS
// ============================================================================

var (
	emailRegex    = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	ibanRegex     = regexp.MustCompile(`[A-Z]{2}\d{2}[A-Z0-9]{10,30}`)
	cardRegex     = regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`)
	uuidRegex     = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
	objectIDRegex = regexp.MustCompile(`\b[0-9a-f]{24}\b`)
	bearerRegex   = regexp.MustCompile(`Bearer\s+\S+`)
)

// ============================================================================
// MASKING FUNCTIONS
// ============================================================================

// MaskString masks e-mails, bank numbers, bearer tokens and shortens ids.
func MaskString(input string) string {
	result := emailRegex.ReplaceAllString(input, "***@***.***")
	result = bearerRegex.ReplaceAllString(result, "Bearer ***")
	result = ibanRegex.ReplaceAllString(result, "****IBAN****")
	result = cardRegex.ReplaceAllString(result, "****-****-****-****")
	result = uuidRegex.ReplaceAllStringFunc(result, MaskID)
	result = objectIDRegex.ReplaceAllStringFunc(result, MaskID)
	return result
}

// MaskID keeps the first 8 characters of an id.
func MaskID(id string) string {
	if len(id) <= 8 {
		return "***"
	}
	return id[:8] + "..."
}

func MaskEmail(email string) string {
	if email == "" {
		return ""
	}
	return "***@***.***"
}

// ============================================================================
// HANDLER
// ============================================================================

type maskingHandler struct {
	next slog.Handler
}

func (h *maskingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *maskingHandler) Handle(ctx context.Context, r slog.Record) error {
	masked := slog.NewRecord(r.Time, r.Level, MaskString(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		masked.AddAttrs(maskAttr(a))
		return true
	})
	return h.next.Handle(ctx, masked)
}

func (h *maskingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = maskAttr(a)
	}
	return &maskingHandler{next: h.next.WithAttrs(masked)}
}

func (h *maskingHandler) WithGroup(name string) slog.Handler {
	return &maskingHandler{next: h.next.WithGroup(name)}
}

func maskAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return slog.String(a.Key, MaskString(v.String()))
	case slog.KindGroup:
		group := v.Group()
		out := make([]slog.Attr, len(group))
		for i, g := range group {
			out[i] = maskAttr(g)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	default:
		return slog.Attr{Key: a.Key, Value: v}
	}
}
