package exasol

import (
	"crypto/tls"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// queuedWSHandler is a WSHandler stub that answers each WriteMessage with
// the next canned response in order; it never touches a real socket.
type queuedWSHandler struct {
	responses [][]byte
	pos       int
}

func (h *queuedWSHandler) Connect(url.URL, *tls.Config, time.Duration) error { return nil }
func (h *queuedWSHandler) WriteMessage(int, []byte) error                   { return nil }
func (h *queuedWSHandler) Close()                                           {}

func (h *queuedWSHandler) ReadMessage() (int, []byte, error) {
	if h.pos >= len(h.responses) {
		return 0, nil, assert.AnError
	}
	r := h.responses[h.pos]
	h.pos++
	return 1, r, nil
}

func newTestConn(responses ...string) *Conn {
	raw := make([][]byte, len(responses))
	for i, r := range responses {
		raw[i] = []byte(r)
	}
	return &Conn{
		log:   newDefaultLogger(),
		wsh:   &queuedWSHandler{responses: raw},
		attrs: Attributes{Autocommit: true},
	}
}

func TestBeginCommit(t *testing.T) {
	c := newTestConn(
		`{"status":"ok"}`,          // DisableAutoCommit
		`{"status":"ok"}`,          // Execute("commit")
		`{"status":"ok"}`,          // EnableAutoCommit
	)

	tx, err := c.Begin()
	require.NoError(t, err)
	assert.Equal(t, 1, c.snapshotAttrs().OpenTransaction)
	assert.False(t, c.snapshotAttrs().Autocommit)

	require.NoError(t, tx.Commit())
	assert.Equal(t, 0, c.snapshotAttrs().OpenTransaction)
	assert.True(t, c.snapshotAttrs().Autocommit)
}

func TestBeginRollback(t *testing.T) {
	c := newTestConn(
		`{"status":"ok"}`, // DisableAutoCommit
		`{"status":"ok"}`, // Execute("rollback")
		`{"status":"ok"}`, // EnableAutoCommit
	)

	tx, err := c.Begin()
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
	assert.Equal(t, 0, c.snapshotAttrs().OpenTransaction)
	assert.True(t, c.snapshotAttrs().Autocommit)
}

func TestCommitAfterRollbackIsNoop(t *testing.T) {
	c := newTestConn(
		`{"status":"ok"}`,
		`{"status":"ok"}`,
		`{"status":"ok"}`,
	)
	tx, err := c.Begin()
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, tx.Commit(), "resolving an already-resolved Tx is a no-op, not an error")
}

func TestBeginFailsWhenAlreadyOpen(t *testing.T) {
	c := newTestConn(
		`{"status":"ok"}`, // DisableAutoCommit for the first, live Begin
	)

	tx, err := c.Begin()
	require.NoError(t, err)
	require.NotNil(t, tx)

	_, err = c.Begin()
	assert.ErrorIs(t, err, ErrTransactionAlreadyOpen)
}

func TestBeginResolvesAbandonedTransaction(t *testing.T) {
	c := newTestConn(
		`{"status":"ok"}`, // Execute("rollback") for the abandoned tx
		`{"status":"ok"}`, // EnableAutoCommit for the abandoned tx
		`{"status":"ok"}`, // DisableAutoCommit for the new Begin
	)
	c.attrs.OpenTransaction = 1
	c.attrs.Autocommit = false
	c.pendingRollback = &rollbackGuard{c: c}

	tx, err := c.Begin()
	require.NoError(t, err)
	assert.NotNil(t, tx)
	assert.Equal(t, 1, c.snapshotAttrs().OpenTransaction)
}

func TestCheckTxInvariantViolation(t *testing.T) {
	c := newTestConn()
	c.attrs.OpenTransaction = 1
	c.attrs.Autocommit = true
	err := c.checkTxInvariant()
	assert.Error(t, err)
}

func TestCheckTxInvariantHoldsByDefault(t *testing.T) {
	c := newTestConn()
	assert.NoError(t, c.checkTxInvariant())
}
