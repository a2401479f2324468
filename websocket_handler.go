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
	"crypto/tls"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// WSHandler is the interface Conn uses to talk to the control channel.
// The default implementation (defWSHandler) uses gorilla/websocket; a
// custom handler can be supplied via ConnConf.WSHandler for:
//  1. Using a non-gorilla websocket library
//  2. Emulating Exasol for testing purposes
//  3. Intercepting/recording traffic
//
// WriteMessage/ReadMessage operate on raw frames (not JSON) because the
// control channel's own JSON envelope may itself be zlib-compressed and
// sent as a Binary frame; that framing decision belongs to Conn.send, not
// to the handler.
type WSHandler interface {
	// tls.Config is optional; if specified TLS is used for the dial.
	// time.Duration is the connect timeout (zero means none).
	Connect(url.URL, *tls.Config, time.Duration) error
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, data []byte, err error)
	Close()
}

// defWSHandler is the default WSHandler implementation, backed by
// gorilla/websocket.
type defWSHandler struct {
	ws *websocket.Conn
}

func newDefaultWSHandler() *defWSHandler {
	return &defWSHandler{}
}

var defaultDialer = *websocket.DefaultDialer

func init() {
	defaultDialer.Proxy = nil
	// The control channel's compression is handled at the JSON-envelope
	// level (websocket.go), not via the RFC 7692 permessage-deflate
	// extension gorilla/websocket would otherwise negotiate.
	defaultDialer.EnableCompression = false
}

func (wsh *defWSHandler) Connect(u url.URL, tlsCfg *tls.Config, timeout time.Duration) error {
	dialer := defaultDialer
	if timeout != 0 {
		dialer.HandshakeTimeout = timeout
	}
	dialer.TLSClientConfig = tlsCfg

	// Per gorilla/websocket docs, it is safe to call Dialer methods
	// concurrently, so a package-level prototype dialer can be copied
	// per-call without a lock.
	ws, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		return err
	}

	wsh.ws = ws
	return nil
}

func (wsh *defWSHandler) WriteMessage(messageType int, data []byte) error {
	return wsh.ws.WriteMessage(messageType, data)
}

func (wsh *defWSHandler) ReadMessage() (int, []byte, error) {
	return wsh.ws.ReadMessage()
}

func (wsh *defWSHandler) Close() {
	if wsh.ws != nil {
		wsh.ws.Close()
		wsh.ws = nil
	}
}
