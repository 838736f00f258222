package logger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

type contextKey string

const (
	updateIDKey contextKey = "update_id"
	chatIDKey   contextKey = "chat_id"
)

type SourceMode int

const (
	NoSource SourceMode = iota
	ShortSource
	LongSource
)

type Options struct {
	// Level is the minimum level written. Nil means info.
	Level slog.Leveler

	TimeFormat string
	Source     SourceMode

	// NoColor writes plain text, for log collectors.
	NoColor bool
}

var DefaultOptions = &Options{
	Level:      slog.LevelInfo,
	TimeFormat: time.DateTime,
	Source:     ShortSource,
}

// NewOptions derives handler options from the configured level and colour preference.
func NewOptions(level slog.Leveler, noColor bool) *Options {
	opts := *DefaultOptions
	opts.Level = level
	opts.NoColor = noColor
	return &opts
}

type palette struct {
	time, updateID, chatID, separator, key, errKey *color.Color
	levels                                         map[slog.Level]*color.Color
}

func newPalette(noColor bool) *palette {
	p := &palette{
		time:      color.New(color.Faint),
		updateID:  color.New(color.FgMagenta),
		chatID:    color.New(color.FgBlue),
		separator: color.New(color.FgHiWhite),
		key:       color.New(color.FgCyan),
		errKey:    color.New(color.FgRed),
		levels: map[slog.Level]*color.Color{
			slog.LevelDebug: color.New(color.BgCyan, color.FgHiWhite),
			slog.LevelInfo:  color.New(color.BgGreen, color.FgHiWhite),
			slog.LevelWarn:  color.New(color.BgYellow, color.FgHiWhite),
			slog.LevelError: color.New(color.BgRed, color.FgHiWhite),
		},
	}
	if noColor {
		for _, c := range []*color.Color{p.time, p.updateID, p.chatID, p.separator, p.key, p.errKey} {
			c.DisableColor()
		}
		for _, c := range p.levels {
			c.DisableColor()
		}
	}
	return p
}

// Handler writes one coloured line per record: time, update and chat id from
// the context, level, source, message, then key=value attributes.
type Handler struct {
	opts    Options
	palette *palette

	// rendered holds attributes added through WithAttrs, already formatted.
	rendered string
	group    string

	mu  *sync.Mutex
	out io.Writer
}

func NewHandler(out io.Writer, opts *Options) *Handler {
	if opts == nil {
		opts = DefaultOptions
	}
	h := &Handler{opts: *opts, out: out, mu: &sync.Mutex{}}
	if h.opts.Level == nil {
		h.opts.Level = slog.LevelInfo
	}
	h.palette = newPalette(h.opts.NoColor)
	return h
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	buf := bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufPool.Put(buf)

	if !r.Time.IsZero() {
		h.palette.time.Fprint(buf, r.Time.Format(h.opts.TimeFormat))
		buf.WriteByte(' ')
	}
	if updateID, ok := UpdateIDFromContext(ctx); ok {
		h.palette.updateID.Fprintf(buf, "%d ", updateID)
	}
	if chatID, ok := ChatIDFromContext(ctx); ok {
		h.palette.chatID.Fprintf(buf, "chat:%d ", chatID)
	}

	h.writeLevel(buf, r.Level)
	h.writeSource(buf, r.PC)

	h.palette.separator.Fprint(buf, "| ")
	buf.WriteString(r.Message)
	buf.WriteString(h.rendered)
	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(buf, h.group, a)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(buf.Bytes())
	return err
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.group += name + "."
	return &h2
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var buf bytes.Buffer
	for _, a := range attrs {
		h.writeAttr(&buf, h.group, a)
	}
	h2 := *h
	h2.rendered += buf.String()
	return &h2
}

func (h *Handler) writeLevel(buf *bytes.Buffer, level slog.Level) {
	label := fmt.Sprintf("%-5s", level.String())
	if c, ok := h.palette.levels[level]; ok {
		c.Fprint(buf, label)
	} else {
		buf.WriteString(label)
	}
	buf.WriteByte(' ')
}

func (h *Handler) writeSource(buf *bytes.Buffer, pc uintptr) {
	if h.opts.Source == NoSource || pc == 0 {
		return
	}
	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	file := frame.File
	if h.opts.Source == ShortSource {
		file = filepath.Base(file)
	}
	fmt.Fprintf(buf, "%s:%d ", file, frame.Line)
}

// writeAttr flattens groups into dotted keys. Error attributes get a red key.
func (h *Handler) writeAttr(buf *bytes.Buffer, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			h.writeAttr(buf, prefix, ga)
		}
		return
	}

	keyColor := h.palette.key
	if strings.Contains(a.Key, "err") {
		keyColor = h.palette.errKey
	}
	buf.WriteByte(' ')
	keyColor.Fprint(buf, prefix+a.Key+"=")
	buf.WriteString(a.Value.String())
}

var bufPool = sync.Pool{
	New: func() any { return &bytes.Buffer{} },
}

// Err wraps an error into an attribute under the "err" key, which the handler highlights.
func Err(err error) slog.Attr {
	return slog.Any("err", err)
}

func ContextWithUpdateID(ctx context.Context, updateID int) context.Context {
	return context.WithValue(ctx, updateIDKey, updateID)
}

func UpdateIDFromContext(ctx context.Context) (int, bool) {
	updateID, ok := ctx.Value(updateIDKey).(int)
	return updateID, ok
}

func ContextWithChatID(ctx context.Context, chatID int64) context.Context {
	return context.WithValue(ctx, chatIDKey, chatID)
}

func ChatIDFromContext(ctx context.Context) (int64, bool) {
	chatID, ok := ctx.Value(chatIDKey).(int64)
	return chatID, ok
}
