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
	"bytes"
	"compress/zlib"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// wsConnect dials the first configured node and performs the websocket
// upgrade. TLS is used whenever ConnConf.SSLMode isn't Disabled.
func (c *Conn) wsConnect(ctx context.Context) error {
	_ = ctx // the handshake timeout is carried via ConnConf.ConnectTimeout; ctx is reserved for future cancellable dials

	cfg := c.resolveTLSConfig()
	u := c.dialURL(c.nodes[0], cfg)
	c.log.Debugf("connecting to %s", u.String())

	if err := c.wsh.Connect(u, cfg, c.Conf.ConnectTimeout); err != nil {
		return fmt.Errorf("dial %s: %w", u.String(), err)
	}
	return nil
}

func (c *Conn) resolveTLSConfig() *tls.Config {
	if c.Conf.SSLMode == SSLModeDisabled {
		return nil
	}
	cfg := c.Conf.TLSConfig
	if cfg == nil {
		cfg = &tls.Config{}
	}
	if c.Conf.SSLMode == SSLModePreferred {
		// "preferred" negotiates TLS with the same certificate checks as
		// "required"; it does not fall back to a plain connection.
	}
	if c.Conf.SSLMode == SSLModeVerifyCA || c.Conf.SSLMode == SSLModeVerifyIdentity {
		cfg.InsecureSkipVerify = false
	}
	return cfg
}

// setCompressed records whether the JSON envelope is zlib-compressed on
// the wire, per the server's acknowledgement during login.
func (c *Conn) setCompressed(v bool) {
	if v {
		atomic.StoreInt32(&c.compressedFlag, 1)
	} else {
		atomic.StoreInt32(&c.compressedFlag, 0)
	}
}

func (c *Conn) isCompressed() bool {
	return atomic.LoadInt32(&c.compressedFlag) == 1
}

// send performs a synchronous request/response round trip: marshal req,
// send it, then block for the matching response. The control channel is
// strictly serial (no pipelining), enforced by c.mux.
func (c *Conn) send(req interface{}, res interface{}) error {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.sendLocked(req, res)
}

func (c *Conn) sendLocked(req interface{}, res interface{}) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return &ProtocolError{Msg: "unable to marshal request", Err: err}
	}

	messageType := websocket.TextMessage
	if c.isCompressed() {
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write(payload); err != nil {
			return &IoError{Op: "zlib compress", Err: err}
		}
		if err := zw.Close(); err != nil {
			return &IoError{Op: "zlib compress", Err: err}
		}
		payload = buf.Bytes()
		messageType = websocket.BinaryMessage
	}

	if err := c.wsh.WriteMessage(messageType, payload); err != nil {
		return &IoError{Op: "websocket write", Err: err}
	}

	return c.recv(res)
}

// asyncSend writes req immediately and returns a receiver closure that
// blocks for the response when called. This is how the ETL job
// coordinator issues the IMPORT/EXPORT SQL without blocking the goroutine
// that needs to run the workers concurrently with it.
//
// The caller MUST invoke the returned receiver exactly once, and must not
// issue another request on this Conn until it has done so — the channel
// is single-owner for the duration of the in-flight request.
func (c *Conn) asyncSend(req interface{}, res interface{}) (func() error, error) {
	c.mux.Lock()

	payload, err := json.Marshal(req)
	if err != nil {
		c.mux.Unlock()
		return nil, &ProtocolError{Msg: "unable to marshal request", Err: err}
	}

	messageType := websocket.TextMessage
	if c.isCompressed() {
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write(payload); err != nil {
			c.mux.Unlock()
			return nil, &IoError{Op: "zlib compress", Err: err}
		}
		if err := zw.Close(); err != nil {
			c.mux.Unlock()
			return nil, &IoError{Op: "zlib compress", Err: err}
		}
		payload = buf.Bytes()
		messageType = websocket.BinaryMessage
	}

	if err := c.wsh.WriteMessage(messageType, payload); err != nil {
		c.mux.Unlock()
		return nil, &IoError{Op: "websocket write", Err: err}
	}

	return func() error {
		defer c.mux.Unlock()
		return c.recv(res)
	}, nil
}

func (c *Conn) recv(res interface{}) error {
	messageType, data, err := c.wsh.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway,
			websocket.CloseAbnormalClosure, websocket.CloseProtocolError) {
			return &ProtocolError{Msg: "websocket closed", Err: fmt.Errorf("%w: %s", ErrWebSocketClosed, err)}
		}
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) {
			return &ProtocolError{Msg: "websocket closed", Err: fmt.Errorf("%w: %s", ErrWebSocketClosed, closeErr.Text)}
		}
		return &IoError{Op: "websocket read", Err: err}
	}

	if messageType == websocket.BinaryMessage && c.isCompressed() {
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return &ProtocolError{Msg: "unable to open zlib stream", Err: err}
		}
		inflated, err := io.ReadAll(zr)
		zr.Close()
		if err != nil {
			return &ProtocolError{Msg: "unable to inflate response", Err: err}
		}
		data = inflated
	}

	var raw response
	if err := json.Unmarshal(data, &raw); err != nil {
		return &ProtocolError{Msg: "unable to decode JSON envelope", Err: err}
	}

	c.reconcileAttrs(raw.Attributes)
	if err := c.checkTxInvariant(); err != nil {
		return err
	}

	if raw.Status != "ok" {
		if raw.Exception == nil {
			return &ProtocolError{Msg: "error response missing exception detail"}
		}
		dbErr := &DatabaseError{SQLCode: raw.Exception.Sqlcode, Text: raw.Exception.Text}
		return classifyDatabaseError(dbErr)
	}

	if res == nil {
		return nil
	}
	if err := json.Unmarshal(data, res); err != nil {
		return &ProtocolError{Msg: "unable to decode response body", Err: err}
	}
	return nil
}
