package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// consoleHandler writes one line per record for a terminal:
//
//	15:04:05 WARN  [batch] 1a2b3c4d 2/5 item failed  reason="encoder exited 1"
//
// Batch and item identifiers are folded into the prefix. Bookkeeping keys
// only show at debug level.
type consoleHandler struct {
	mu        *sync.Mutex
	w         io.Writer
	level     slog.Leveler
	addSource bool
	prefix    string
	fields    []field
}

type field struct {
	key   string
	value slog.Value
}

var consoleDebugKeys = map[string]bool{
	FieldEventType:     true,
	FieldCorrelationID: true,
	"args":             true,
	"binary":           true,
	"stderr_tail":      true,
}

func newConsoleHandler(w io.Writer, level slog.Leveler, addSource bool) *consoleHandler {
	return &consoleHandler{mu: &sync.Mutex{}, w: w, level: level, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	fields := make([]field, 0, len(h.fields)+record.NumAttrs())
	fields = append(fields, h.fields...)
	record.Attrs(func(attr slog.Attr) bool {
		fields = appendField(fields, h.prefix, attr)
		return true
	})
	fields = lastWins(fields)

	debug := record.Level < slog.LevelInfo
	var component, batchID, index, count string
	rest := fields[:0:0]
	for _, f := range fields {
		switch f.key {
		case FieldComponent:
			component = f.value.String()
		case FieldBatchID:
			batchID = f.value.String()
		case FieldItemIndex:
			index = f.value.String()
		case FieldItemCount:
			count = f.value.String()
		default:
			if !debug && consoleDebugKeys[f.key] {
				continue
			}
			rest = append(rest, f)
		}
	}

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	var buf bytes.Buffer
	buf.WriteString(ts.Local().Format("15:04:05"))
	fmt.Fprintf(&buf, " %-5s", levelName(record.Level))
	if component != "" {
		buf.WriteString(" [" + component + "]")
	}
	if batchID != "" {
		if len(batchID) > 8 {
			batchID = batchID[:8]
		}
		buf.WriteString(" " + batchID)
	}
	if index != "" {
		buf.WriteString(" " + index)
		if count != "" {
			buf.WriteString("/" + count)
		}
	}
	buf.WriteString(" " + strings.TrimSpace(record.Message))
	if len(rest) > 0 {
		buf.WriteByte(' ')
	}
	for _, f := range rest {
		buf.WriteByte(' ')
		buf.WriteString(f.key)
		buf.WriteByte('=')
		buf.WriteString(consoleValue(f.key, f.value))
	}
	if h.addSource && record.PC != 0 {
		if src := record.Source(); src != nil {
			fmt.Fprintf(&buf, " (%s:%d)", filepath.Base(src.File), src.Line)
		}
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.fields = append([]field(nil), h.fields...)
	for _, attr := range attrs {
		next.fields = appendField(next.fields, h.prefix, attr)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func appendField(dst []field, prefix string, attr slog.Attr) []field {
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		if attr.Key != "" {
			prefix += attr.Key + "."
		}
		for _, inner := range attr.Value.Group() {
			dst = appendField(dst, prefix, inner)
		}
		return dst
	}
	if attr.Key == "" {
		return dst
	}
	return append(dst, field{key: prefix + attr.Key, value: attr.Value})
}

// lastWins keeps the first position of each key with the last value set.
func lastWins(fields []field) []field {
	seen := make(map[string]int, len(fields))
	out := fields[:0:0]
	for _, f := range fields {
		if pos, ok := seen[f.key]; ok {
			out[pos].value = f.value
			continue
		}
		seen[f.key] = len(out)
		out = append(out, f)
	}
	return out
}

// consoleValue renders sizes and percentages for people; everything else is
// quoted when it would not read as a single token.
func consoleValue(key string, v slog.Value) string {
	switch v.Kind() {
	case slog.KindInt64:
		if strings.HasSuffix(key, "_bytes") && v.Int64() >= 0 {
			return humanize.IBytes(uint64(v.Int64()))
		}
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindFloat64:
		if strings.HasSuffix(key, "_percent") {
			return strconv.FormatFloat(v.Float64(), 'f', 1, 64) + "%"
		}
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		d := v.Duration()
		if d >= time.Second {
			d = d.Round(100 * time.Millisecond)
		}
		return d.String()
	case slog.KindTime:
		return v.Time().Local().Format(time.DateTime)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return quoteIfNeeded(err.Error())
		}
	}
	return quoteIfNeeded(v.String())
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
