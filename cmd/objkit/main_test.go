package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"objkit/internal/diag"
)

func TestReportDiagnosticsMirrorsEveryEntry(t *testing.T) {
	sink := diag.NewSink()
	sink.Skip("NSBezierPath.CGPath", `return type "CGPathRef" did not map`)
	sink.WarnRule("NSObject.description", "no ownership rule fired for return value, defaulted", "default:autoreleased")

	core, logs := observer.New(zap.WarnLevel)
	reportDiagnostics(zap.New(core), sink)

	require.Equal(t, 2, logs.Len())
	entries := logs.All()
	assert.Equal(t, "skipped", entries[0].Message)
	assert.Equal(t, "NSBezierPath.CGPath", entries[0].ContextMap()["id"])
	assert.Equal(t, "warning", entries[1].Message)
	assert.Equal(t, "default:autoreleased", entries[1].ContextMap()["rule"])
}
