package stream

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Log("capture:", "event sent", 42)
	c.Warn("wrapping non-error value", "boom")

	assert.Equal(t, "capture: event sent 42\nWARN: wrapping non-error value boom\n", buf.String())
}
