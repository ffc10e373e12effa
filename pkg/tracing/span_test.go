package tracing

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"gotest.tools/assert"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/logger"
)

func TestSpanTree(t *testing.T) {
	ctx := logger.WithRequestID(context.Background(), "req-1")
	ctx, root := Start(ctx, "list-restaurants")
	queryCtx, query := Start(ctx, "query")
	_, cache := Start(queryCtx, "cache")
	cache.Set(slog.Bool("hit", false))
	cache.Set(slog.Bool("hit", true))
	cache.End()
	query.End()
	first := root.End()

	assert.Equal(t, root.TraceID(), "req-1")
	assert.Equal(t, cache.TraceID(), "req-1")
	assert.Equal(t, root.Find("cache"), cache)
	assert.Assert(t, root.Find("missing") == nil)
	assert.Equal(t, root.End(), first)

	hit, ok := cache.Attr("hit")
	assert.Assert(t, ok)
	assert.Equal(t, hit.Bool(), true)
}

func TestRootWithoutRequestID(t *testing.T) {
	ctx, span := Start(context.Background(), "orphan")
	assert.Equal(t, FromContext(ctx), span)
	assert.Equal(t, span.TraceID(), "")
	assert.Assert(t, FromContext(context.Background()) == nil)
}

func TestLogNestsChildren(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	var buf bytes.Buffer
	logger.SetupWriter(&buf, "catalog", "debug", "json")

	ctx, root := Start(context.Background(), "root")
	_, child := Start(ctx, "child")
	child.Set(slog.Int("results", 3))
	child.End()
	root.End()
	root.Log(ctx)

	var record struct {
		Msg  string `json:"msg"`
		Root struct {
			Child struct {
				Results int `json:"results"`
			} `json:"child"`
		} `json:"root"`
	}
	assert.NilError(t, json.Unmarshal(buf.Bytes(), &record), buf.String())
	assert.Equal(t, record.Msg, "trace")
	assert.Equal(t, record.Root.Child.Results, 3)
}
