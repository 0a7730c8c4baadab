package cli

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterruptHandler_Signal(t *testing.T) {
	var buf bytes.Buffer
	h := NewInterruptHandler(&buf)

	ctx, stop := h.HandleInterrupts(context.Background(), "Import", "Entries added so far were kept.")
	defer stop()

	h.signals <- os.Interrupt

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context was not canceled")
	}

	require.Eventually(t, h.WasInterrupted, time.Second, 10*time.Millisecond)
	assert.Contains(t, buf.String(), "Import interrupted!")
	assert.Contains(t, buf.String(), "Entries added so far were kept.")
}

func TestInterruptHandler_StopWithoutSignal(t *testing.T) {
	var buf bytes.Buffer
	h := NewInterruptHandler(&buf)

	ctx, stop := h.HandleInterrupts(context.Background(), "Import", "")
	stop()
	stop()

	<-ctx.Done()
	assert.False(t, h.WasInterrupted())
	assert.Empty(t, buf.String())
}
