// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package serial

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipePort feeds reads from a pipe and records writes.
type pipePort struct {
	r *io.PipeReader
	w *io.PipeWriter

	mu       sync.Mutex
	tx       bytes.Buffer
	writeErr error
}

func newPipePort() *pipePort {
	r, w := io.Pipe()
	return &pipePort{r: r, w: w}
}

func (pp *pipePort) Read(b []byte) (int, error) { return pp.r.Read(b) }

func (pp *pipePort) Write(b []byte) (int, error) {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	if pp.writeErr != nil {
		return 0, pp.writeErr
	}
	return pp.tx.Write(b)
}

func (pp *pipePort) Close() error { return pp.r.Close() }

func (pp *pipePort) written() []byte {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	return append([]byte(nil), pp.tx.Bytes()...)
}

func TestPort_Receive(t *testing.T) {
	pp := newPipePort()
	p := NewPort(pp)
	defer p.Close()

	assert.False(t, p.Available())
	_, err := p.ReadByte()
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = pp.w.Write([]byte{0x01, 0x03, 0x00})
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return len(p.rx) == 3
	}, time.Second, time.Millisecond)

	var got []byte
	for p.Available() {
		b, err := p.ReadByte()
		require.NoError(t, err)
		got = append(got, b)
	}
	assert.Equal(t, []byte{0x01, 0x03, 0x00}, got)
}

func TestPort_QueueOverflow(t *testing.T) {
	pp := newPipePort()
	p := NewPort(pp)
	defer p.Close()

	_, err := pp.w.Write(make([]byte, queueSize+76))
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return p.Dropped() == 76 }, time.Second, time.Millisecond)
}

func TestPort_Flush(t *testing.T) {
	pp := newPipePort()
	p := NewPort(pp)
	defer p.Close()

	for _, b := range []byte{0x01, 0x83, 0x02, 0xC0, 0xF1} {
		require.NoError(t, p.WriteByte(b))
	}
	assert.Empty(t, pp.written(), "writes are buffered")

	require.NoError(t, p.Flush())
	assert.Equal(t, []byte{0x01, 0x83, 0x02, 0xC0, 0xF1}, pp.written())

	require.NoError(t, p.Flush())
	assert.Len(t, pp.written(), 5, "buffer reset after flush")
}

func TestPort_FlushError(t *testing.T) {
	pp := newPipePort()
	pp.writeErr = errors.New("device removed")
	p := NewPort(pp)
	defer p.Close()

	require.NoError(t, p.WriteByte(0x01))
	assert.ErrorIs(t, p.Flush(), pp.writeErr)
}

func TestPort_DriverEnable(t *testing.T) {
	p := NewPort(newPipePort())
	defer p.Close()

	require.NoError(t, p.SetDriverEnable(true))
	assert.True(t, p.DriverEnabled())
	require.NoError(t, p.SetDriverEnable(false))
	assert.False(t, p.DriverEnabled())
}

func TestPort_Close(t *testing.T) {
	p := NewPort(newPipePort())
	require.NoError(t, p.Close())
	assert.NoError(t, p.Close(), "second close is a no-op")

	select {
	case <-p.done:
	default:
		t.Fatal("receive loop still running")
	}
}
