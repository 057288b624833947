package tracing

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestNewProvider_DisabledIsNoop(t *testing.T) {
	p, err := NewProvider(DefaultConfig())
	require.NoError(t, err)
	assert.False(t, p.Enabled())
	require.NotNil(t, p.Tracer())

	_, span := p.Tracer().Start(context.Background(), SpanDispatchKey)
	span.End()
	assert.False(t, span.SpanContext().IsValid())
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_FileExporterRequiresPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	_, err := NewProvider(cfg)
	require.ErrorContains(t, err, "file_path required")
}

func TestNewProvider_UnknownExporter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Exporter = "zipkin"
	_, err := NewProvider(cfg)
	require.ErrorContains(t, err, "unsupported exporter type")
}

func TestNewProvider_FileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces", "out.jsonl")
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.FilePath = path

	p, err := NewProvider(cfg)
	require.NoError(t, err)
	assert.True(t, p.Enabled())

	ctx, parent := p.Tracer().Start(context.Background(), SpanDispatchKey)
	parent.SetAttributes(attribute.String(AttrKey, "d"))
	_, child := p.Tracer().Start(ctx, SpanBatchApply)
	child.AddEvent(EventNoMatch)
	child.SetStatus(codes.Error, "overlap")
	child.End()
	parent.End()
	require.NoError(t, p.Shutdown(context.Background()))

	records := readRecords(t, path)
	require.Len(t, records, 2)
	byName := map[string]SpanRecord{}
	for _, r := range records {
		byName[r.Name] = r
	}
	assert.Equal(t, "d", byName[SpanDispatchKey].Attributes[AttrKey])
	assert.Equal(t, byName[SpanDispatchKey].SpanID, byName[SpanBatchApply].ParentSpanID)
	assert.Equal(t, "ERROR", byName[SpanBatchApply].Status)
	assert.Equal(t, []string{EventNoMatch}, byName[SpanBatchApply].Events)
}

func TestFileExporter_ShutdownTwice(t *testing.T) {
	exp, err := NewFileExporter(filepath.Join(t.TempDir(), "x.jsonl"))
	require.NoError(t, err)
	require.NoError(t, exp.Shutdown(context.Background()))
	require.NoError(t, exp.Shutdown(context.Background()))
	require.Error(t, exp.ExportSpans(context.Background(), []sdktrace.ReadOnlySpan{}))
}

func readRecords(t *testing.T, path string) []SpanRecord {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []SpanRecord
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r SpanRecord
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		out = append(out, r)
	}
	require.NoError(t, sc.Err())
	return out
}
