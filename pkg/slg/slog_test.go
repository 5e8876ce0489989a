package slg_test

import (
	"context"
	"log/slog"
	"testing"

	"narrator/pkg/slg"

	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/require"
)

func TestWithSlog(t *testing.T) {
	logger := slog.Default().With("request_id", "r1")

	ctx := slg.WithSlog(context.Background(), logger)
	require.Same(t, logger, slg.GetSlog(ctx))

	require.Same(t, slog.Default(), slg.GetSlog(context.Background()))
}

type pointRecorder struct {
	api.WriteAPI
	points []*write.Point
}

func (r *pointRecorder) WritePoint(point *write.Point) {
	r.points = append(r.points, point)
}

func fieldsOf(p *write.Point) map[string]any {
	fields := map[string]any{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}

	return fields
}

func TestInfluxDBHandler(t *testing.T) {
	assert := require.New(t)

	recorder := &pointRecorder{}
	logger := slog.New(&slg.InfluxDBHandler{InfluxDBWriter: recorder})

	logger.Debug("dropped")
	logger.With("component", "api").WithGroup("narrator").Info("narration generated", "event_id", "abc123", "attempt", 1)

	assert.Len(recorder.points, 1)

	point := recorder.points[0]
	assert.Equal("narrator_log", point.Name())
	assert.Equal("INFO", point.TagList()[0].Value)

	fields := fieldsOf(point)
	assert.Equal("narration generated", fields["message"])
	assert.Equal("api", fields["component"])
	assert.Equal("abc123", fields["narrator.event_id"])
	assert.EqualValues(1, fields["narrator.attempt"])
}

func TestInfluxDBHandlerLevel(t *testing.T) {
	recorder := &pointRecorder{}
	logger := slog.New(&slg.InfluxDBHandler{InfluxDBWriter: recorder, Level: slog.LevelDebug})

	logger.Debug("kept")

	require.Len(t, recorder.points, 1)
}
