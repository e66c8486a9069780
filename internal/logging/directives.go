package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// LevelTrace sits below slog.LevelDebug for very chatty diagnostics.
const LevelTrace = slog.Level(-8)

// Directives holds the effective log levels: a default plus per-component
// overrides. Components are matched against the "component" attribute that
// WithComponent installs.
type Directives struct {
	Default    slog.Level
	Components map[string]slog.Level
}

// DefaultDirectives returns the shipped levels: warn overall, info for the
// application's own components.
func DefaultDirectives() Directives {
	return Directives{
		Default: slog.LevelWarn,
		Components: map[string]slog.Level{
			"app":     slog.LevelInfo,
			"request": slog.LevelInfo,
			"gtfs":    slog.LevelInfo,
			"fusion":  slog.LevelInfo,
			"hub":     slog.LevelInfo,
		},
	}
}

// ParseDirectives applies a LOG_LEVEL directive list on top of base.
// The grammar is a comma-separated list of either "component=level" or a bare
// "level" that replaces the default. Unknown levels are reported in the
// returned slice and skipped; the rest of the list still applies.
func ParseDirectives(s string, base Directives) (Directives, []error) {
	out := Directives{
		Default:    base.Default,
		Components: make(map[string]slog.Level, len(base.Components)),
	}
	for k, v := range base.Components {
		out.Components[k] = v
	}

	var errs []error
	for _, directive := range strings.Split(s, ",") {
		directive = strings.TrimSpace(directive)
		if directive == "" {
			continue
		}

		component, levelStr, hasComponent := strings.Cut(directive, "=")
		if !hasComponent {
			levelStr = component
			component = ""
		}

		level, err := ParseLevel(levelStr)
		if err != nil {
			errs = append(errs, fmt.Errorf("directive %q: %w", directive, err))
			continue
		}

		if component == "" {
			out.Default = level
		} else {
			out.Components[strings.TrimSpace(component)] = level
		}
	}
	return out, errs
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error", "err":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// directiveHandler filters records by the per-component levels before
// delegating to the wrapped handler.
type directiveHandler struct {
	inner slog.Handler
	dirs  Directives
	level slog.Level
}

// NewDirectiveHandler wraps inner with per-component level filtering.
// The wrapped handler must be configured to pass all levels through;
// filtering happens here.
func NewDirectiveHandler(inner slog.Handler, dirs Directives) slog.Handler {
	return &directiveHandler{inner: inner, dirs: dirs, level: dirs.Default}
}

func (h *directiveHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *directiveHandler) Handle(ctx context.Context, r slog.Record) error {
	// Records may carry the component inline rather than via WithAttrs.
	min := h.level
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "component" {
			if lvl, ok := h.dirs.Components[a.Value.String()]; ok {
				min = lvl
			}
			return false
		}
		return true
	})
	if r.Level < min {
		return nil
	}
	return h.inner.Handle(ctx, r)
}

func (h *directiveHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	level := h.level
	for _, a := range attrs {
		if a.Key == "component" {
			if lvl, ok := h.dirs.Components[a.Value.String()]; ok {
				level = lvl
			} else {
				level = h.dirs.Default
			}
		}
	}
	return &directiveHandler{inner: h.inner.WithAttrs(attrs), dirs: h.dirs, level: level}
}

func (h *directiveHandler) WithGroup(name string) slog.Handler {
	return &directiveHandler{inner: h.inner.WithGroup(name), dirs: h.dirs, level: h.level}
}

// NewLogger builds the application logger: text output for interactive use,
// JSON for production, with directive-based filtering in front.
func NewLogger(w io.Writer, jsonFormat bool, dirs Directives) *slog.Logger {
	opts := &slog.HandlerOptions{Level: LevelTrace}
	var inner slog.Handler
	if jsonFormat {
		inner = slog.NewJSONHandler(w, opts)
	} else {
		inner = slog.NewTextHandler(w, opts)
	}
	return slog.New(NewDirectiveHandler(inner, dirs))
}
