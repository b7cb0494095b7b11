package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, false)
	logger.Debug("hidden")
	logger.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	logger = New(&buf, true)
	logger.Debug("opening store")
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "opening store")
}

func TestRedaction(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, true)

	logger.Debug("credential",
		"alias", "db.password",
		"password", "storepass",
		"Secret", "s3cr3t",
		"token", "MASK-abc;12345678;100",
	)

	output := buf.String()
	assert.Contains(t, output, "alias=db.password")
	assert.NotContains(t, output, "storepass")
	assert.NotContains(t, output, "s3cr3t")
	assert.NotContains(t, output, "MASK-abc")
	assert.Contains(t, output, "password="+Redacted)
}

func TestContextKeys(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", Command(ctx))
	assert.Equal(t, "", Location(ctx))

	ctx = WithCommand(ctx, "credential-store")
	ctx = WithLocation(ctx, "/tmp/store.cs")
	assert.Equal(t, "credential-store", Command(ctx))
	assert.Equal(t, "/tmp/store.cs", Location(ctx))
}

func TestCorrelationHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, false)

	ctx := WithLocation(WithCommand(context.Background(), "credential-store"), "/tmp/store.cs")
	logger.With("action", "retrieve").InfoContext(ctx, "store opened")

	output := buf.String()
	assert.Contains(t, output, "command=credential-store")
	assert.Contains(t, output, "location=/tmp/store.cs")
	assert.Contains(t, output, "action=retrieve")

	buf.Reset()
	logger.Info("no context")
	assert.NotContains(t, buf.String(), "command=")
}
