package console

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDebugf_VerboseGate(t *testing.T) {
	var out, errOut bytes.Buffer
	SetOutput(&out, &errOut)
	defer SetOutput(os.Stdout, os.Stderr)

	Debugf(context.Background(), "hidden %d", 1)
	assert.Empty(t, out.String())

	Debugf(SetVerbose(context.Background(), false), "hidden %d", 2)
	assert.Empty(t, out.String())

	Debugf(SetVerbose(context.Background(), true), "shown %d", 3)
	assert.Contains(t, out.String(), "[DEBUG]")
	assert.Contains(t, out.String(), "shown 3")
	assert.Empty(t, errOut.String())
}

func TestDebug_VerboseGate(t *testing.T) {
	var out, errOut bytes.Buffer
	SetOutput(&out, &errOut)
	defer SetOutput(os.Stdout, os.Stderr)

	Debug(context.Background(), "hidden")
	assert.Empty(t, out.String())

	Debug(SetVerbose(context.Background(), true), "shown")
	assert.Contains(t, out.String(), "shown")
}

func TestIsVerbose(t *testing.T) {
	assert.False(t, IsVerbose(context.Background()))
	assert.False(t, IsVerbose(SetVerbose(context.Background(), false)))
	assert.True(t, IsVerbose(SetVerbose(context.Background(), true)))
}
