package stream

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lockedBuffer 并发安全的缓冲区
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestAsyncWriterFlush(t *testing.T) {
	out := &lockedBuffer{}
	w := NewAsyncWriter(out, 4)
	defer w.Close()

	var want bytes.Buffer
	for i := 0; i < 100; i++ {
		line := fmt.Sprintf("line %d\n", i)
		want.WriteString(line)
		n, err := w.Write([]byte(line))
		require.NoError(t, err)
		assert.Equal(t, len(line), n)
	}
	w.Flush()

	assert.Equal(t, want.String(), out.String(), "队列满时阻塞，顺序保持不变")
}

func TestAsyncWriterCopiesInput(t *testing.T) {
	out := &lockedBuffer{}
	w := NewAsyncWriter(out, 8)

	p := []byte("first\n")
	_, _ = w.Write(p)
	copy(p, "XXXXX\n")
	require.NoError(t, w.Close())

	assert.Equal(t, "first\n", out.String())
}

func TestAsyncWriterAfterClose(t *testing.T) {
	out := &lockedBuffer{}
	w := NewAsyncWriter(out, 8)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, err := w.Write([]byte("late\n"))
	require.NoError(t, err)
	w.Flush()
	assert.Equal(t, "late\n", out.String())
}

func TestAsyncWriterRecordsError(t *testing.T) {
	w := NewAsyncWriter(failingWriter{}, 8)
	_, err := w.Write([]byte("x"))
	require.NoError(t, err)

	err = w.Close()
	assert.True(t, errors.Is(err, w.Err()))
	assert.EqualError(t, err, "disk gone")
}
