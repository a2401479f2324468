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
	"net"
	"time"
)

// etlSocket is the duplex byte stream a worker speaks HTTP over: either a
// plain net.Conn or one upgraded to TLS with the job's minted certificate.
//
// The original driver this was distilled from models this as a
// readiness-polled abstraction (try_read/poll_read_ready/...) because its
// scheduler is single-threaded cooperative futures. Go already gives every
// worker its own goroutine, so a plain blocking net.Conn.Read/Write *is*
// the suspension point the original's poll methods exist to express —
// net.Conn satisfies etlSocket directly, with no adapter needed.
type etlSocket interface {
	net.Conn
}

// dialNode opens a plain TCP connection to one cluster node address
// ("host:port"), honoring timeout if non-zero.
func dialNode(node string, timeout time.Duration) (net.Conn, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.Dial("tcp", node)
	if err != nil {
		return nil, &IoError{Op: "dial ETL node " + node, Err: err}
	}
	return conn, nil
}

// upgradeToTLS wraps conn as a TLS server using cert, performing the
// handshake before returning so that I/O errors from a failed handshake
// surface immediately rather than on the first read.
func upgradeToTLS(conn net.Conn, cert *etlJobCert) (net.Conn, error) {
	tlsConn := tls.Server(conn, cert.serverConfig())
	if err := tlsConn.Handshake(); err != nil {
		return nil, &TlsError{Op: "ETL worker TLS handshake", Err: err}
	}
	return tlsConn, nil
}
