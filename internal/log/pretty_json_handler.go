package log

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
)

// NewPrettyJSONHandler indents every record so provisioning and cleanup logs
// stay readable during local development. Deployed environments use the plain
// [slog.JSONHandler] which keeps records on one line for log aggregation.
func NewPrettyJSONHandler(w io.Writer, opts *slog.HandlerOptions) slog.Handler {
	buf := &bytes.Buffer{}
	return &prettyJSONHandler{
		mu:     &sync.Mutex{},
		buf:    buf,
		inner:  slog.NewJSONHandler(buf, opts),
		writer: w,
	}
}

type prettyJSONHandler struct {
	// The buffer is shared between clones created by WithAttrs and WithGroup,
	// so is the mutex guarding it.
	mu     *sync.Mutex
	buf    *bytes.Buffer
	inner  slog.Handler
	writer io.Writer
}

func (h *prettyJSONHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *prettyJSONHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.buf.Reset()
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, h.buf.Bytes(), "", "  "); err != nil {
		return err
	}
	pretty.WriteByte('\n')

	_, err := h.writer.Write(pretty.Bytes())
	return err
}

func (h *prettyJSONHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &prettyJSONHandler{mu: h.mu, buf: h.buf, inner: h.inner.WithAttrs(attrs), writer: h.writer}
}

func (h *prettyJSONHandler) WithGroup(name string) slog.Handler {
	return &prettyJSONHandler{mu: h.mu, buf: h.buf, inner: h.inner.WithGroup(name), writer: h.writer}
}
