/*
    AUTHOR

	Grant Street Group <developers@grantstreet.com>

	COPYRIGHT AND LICENSE

	This software is Copyright (c) 2019 by Grant Street Group.
	This is free software, licensed under:
	    MIT License
*/

package exasol

import (
	"fmt"
	"runtime"
)

// Tx is a guard for one open transaction. It is returned by Begin and must
// be resolved with Commit or Rollback. A Tx abandoned without either (the
// guard becomes unreachable while open) rolls itself back the next time
// Begin is called on the same Conn — the idiomatic Go analogue of the
// original driver's drop-triggered rollback, since Go has no deterministic
// destructors to hook a Drop impl into.
type Tx struct {
	c    *Conn
	done bool
}

// rollbackGuard fills Conn's pendingRollback slot. The finalizer Begin sets
// on an unresolved Tx installs one when that Tx becomes unreachable; Commit
// and Rollback detach the finalizer and clear the slot.
type rollbackGuard struct {
	c *Conn
}

// Begin opens a transaction by disabling autocommit. It first resolves any
// previous Tx that was abandoned without Commit/Rollback, rolling it back,
// then fails with ErrTransactionAlreadyOpen if the session already reports
// one open (open_transaction ⇒ ¬autocommit is the invariant this guards).
func (c *Conn) Begin() (*Tx, error) {
	c.txMux.Lock()
	defer c.txMux.Unlock()

	if err := c.resolvePendingRollback(); err != nil {
		return nil, err
	}

	if c.snapshotAttrs().OpenTransaction != 0 {
		return nil, &ProtocolError{Msg: "unable to begin transaction", Err: ErrTransactionAlreadyOpen}
	}

	if err := c.DisableAutoCommit(); err != nil {
		return nil, fmt.Errorf("unable to begin transaction: %w", err)
	}
	c.setTxAttrsDirect(true)

	tx := &Tx{c: c}
	runtime.SetFinalizer(tx, func(t *Tx) {
		if t.done {
			return
		}
		t.c.log.Warning("Tx abandoned without Commit/Rollback; will roll back on next Begin")
		t.c.txMux.Lock()
		defer t.c.txMux.Unlock()
		t.c.pendingRollback = &rollbackGuard{c: t.c}
	})
	return tx, nil
}

// Commit ends the transaction with COMMIT and re-enables autocommit.
func (t *Tx) Commit() error {
	return t.resolve("commit")
}

// Rollback ends the transaction with ROLLBACK and re-enables autocommit.
func (t *Tx) Rollback() error {
	return t.resolve("rollback")
}

func (t *Tx) resolve(sql string) error {
	if t.done {
		return nil
	}
	t.done = true
	runtime.SetFinalizer(t, nil)

	t.c.txMux.Lock()
	defer t.c.txMux.Unlock()

	if t.c.pendingRollback != nil && t.c.pendingRollback.c == t.c {
		t.c.pendingRollback = nil
	}

	_, err := t.c.Execute(sql)
	if reErr := t.c.EnableAutoCommit(); reErr != nil && err == nil {
		err = reErr
	}
	t.c.setTxAttrsDirect(false)
	if err != nil {
		return fmt.Errorf("unable to %s transaction: %w", sql, err)
	}
	return nil
}

// resolvePendingRollback issues a ROLLBACK for a Tx that was garbage
// collected while still open, and clears the slot either way. Called with
// txMux held.
func (c *Conn) resolvePendingRollback() error {
	if c.pendingRollback == nil {
		return nil
	}
	c.pendingRollback = nil

	if c.snapshotAttrs().OpenTransaction == 0 {
		return nil
	}

	c.log.Warning("Rolling back abandoned transaction")
	_, err := c.Execute("rollback")
	if reErr := c.EnableAutoCommit(); reErr != nil && err == nil {
		err = reErr
	}
	c.setTxAttrsDirect(false)
	if err != nil {
		return fmt.Errorf("unable to resolve abandoned transaction: %w", err)
	}
	return nil
}

// setTxAttrsDirect updates the local attribute snapshot for a transaction
// state change that Begin/Commit/Rollback just caused directly. Server
// deltas alone can't carry this: Attributes fields are `omitempty`, so an
// incoming "no transaction open"/"autocommit false" value is
// indistinguishable from the field simply being absent once reconcileAttrs
// unmarshals it, the same ambiguity the comment inside DisableAutoCommit
// notes for autocommit.
func (c *Conn) setTxAttrsDirect(open bool) {
	c.attrMux.Lock()
	defer c.attrMux.Unlock()
	if open {
		c.attrs.OpenTransaction = 1
		c.attrs.Autocommit = false
	} else {
		c.attrs.OpenTransaction = 0
		c.attrs.Autocommit = true
	}
}

// checkTxInvariant enforces open_transaction ⇒ ¬autocommit after every
// reconcileAttrs. A violation indicates the server and client disagree
// about transaction state, which is always a protocol-level bug rather
// than something callers can recover from.
func (c *Conn) checkTxInvariant() error {
	a := c.snapshotAttrs()
	if a.OpenTransaction != 0 && a.Autocommit {
		return &ProtocolError{Msg: "server reports both an open transaction and autocommit enabled"}
	}
	return nil
}
