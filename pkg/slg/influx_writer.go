package slg

import (
	"context"
	"log/slog"

	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	slogcommon "github.com/samber/slog-common"
)

const measurement = "narrator_log"

var _ slog.Handler = (*InfluxDBHandler)(nil)

// InfluxDBHandler writes every log record as a point, with the level as tag
// and the attributes as fields. Grouped attributes are flattened to
// "group.key".
type InfluxDBHandler struct {
	InfluxDBWriter api.WriteAPI
	Level          slog.Leveler

	attrs  []slog.Attr
	groups []string
}

func (h *InfluxDBHandler) Enabled(ctx context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.Level != nil {
		minLevel = h.Level.Level()
	}

	return level >= minLevel
}

func (h *InfluxDBHandler) Handle(ctx context.Context, record slog.Record) error {
	recordAttrs := make([]slog.Attr, 0, record.NumAttrs())
	record.Attrs(func(a slog.Attr) bool {
		recordAttrs = append(recordAttrs, a)
		return true
	})

	attrs := slogcommon.AppendAttrsToGroup(h.groups, h.attrs, recordAttrs...)

	fields := make(map[string]any, len(attrs)+1)
	flatten("", attrs, fields)

	fields["message"] = record.Message

	point := write.NewPoint(measurement, map[string]string{
		"level": record.Level.String(),
	}, fields, record.Time)

	h.InfluxDBWriter.WritePoint(point)

	return nil
}

func (h *InfluxDBHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &InfluxDBHandler{
		InfluxDBWriter: h.InfluxDBWriter,
		Level:          h.Level,

		attrs:  slogcommon.AppendAttrsToGroup(h.groups, h.attrs, attrs...),
		groups: h.groups,
	}
}

func (h *InfluxDBHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	return &InfluxDBHandler{
		InfluxDBWriter: h.InfluxDBWriter,
		Level:          h.Level,

		attrs:  h.attrs,
		groups: append(append([]string(nil), h.groups...), name),
	}
}

func flatten(prefix string, attrs []slog.Attr, fields map[string]any) {
	for _, a := range attrs {
		key := a.Key
		if prefix != "" {
			key = prefix + "." + key
		}

		value := a.Value.Resolve()

		if value.Kind() == slog.KindGroup {
			flatten(key, value.Group(), fields)
			continue
		}

		switch value.Kind() {
		case slog.KindString, slog.KindInt64, slog.KindUint64, slog.KindFloat64, slog.KindBool:
			fields[key] = value.Any()
		default:
			fields[key] = value.String()
		}
	}
}
