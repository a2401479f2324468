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
	"encoding/binary"
	"fmt"
	"net"
	"strings"
)

// tunnelHandshakePacket is the literal 12-byte request Exasol expects on a
// freshly dialed node connection before it will hand back the address of an
// internal proxy dialed into that worker. The byte meaning beyond the
// framing below is undocumented by Exasol; it is never reinterpreted here.
var tunnelHandshakePacket = []byte{0x02, 0x21, 0x21, 0x02, 0x01, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00}

const tunnelHandshakeReplySize = 24

// internalAddr is the cluster-internal IPv4:port a worker's handshaken
// socket was told to expect a connection on. It is discovered from the
// handshake reply, never assumed from the socket's own local/remote
// address.
type internalAddr struct {
	IP   string
	Port uint16
}

func (a internalAddr) String() string {
	return fmt.Sprintf("%s:%d", a.IP, a.Port)
}

// tunnelHandshake writes the 12-byte request and parses the 24-byte reply
// on conn. conn is left open afterward; it becomes the accept channel for
// the cluster's one inbound HTTP connection.
func tunnelHandshake(conn net.Conn) (internalAddr, error) {
	if _, err := conn.Write(tunnelHandshakePacket); err != nil {
		return internalAddr{}, &IoError{Op: "tunnel handshake write", Err: err}
	}

	reply := make([]byte, tunnelHandshakeReplySize)
	if _, err := readFull(conn, reply); err != nil {
		return internalAddr{}, &IoError{Op: "tunnel handshake read", Err: err}
	}

	return parseHandshakeReply(reply)
}

// readFull reads exactly len(buf) bytes, looping over short reads the way a
// raw net.Conn legitimately returns them.
func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// parseHandshakeReply decodes a 24-byte tunnel handshake reply. Bytes
// [0:4] and [6:8] are opaque (never reinterpreted, per spec); [4:6] is a
// little-endian port; [8:] is a NUL-padded ASCII IPv4 dotted-quad.
func parseHandshakeReply(reply []byte) (internalAddr, error) {
	if len(reply) != tunnelHandshakeReplySize {
		return internalAddr{}, &InternalAddrError{
			Raw: fmt.Sprintf("% x", reply),
			Err: fmt.Errorf("expected %d bytes, got %d", tunnelHandshakeReplySize, len(reply)),
		}
	}

	port := binary.LittleEndian.Uint16(reply[4:6])

	rawIP := reply[8:]
	if i := indexNUL(rawIP); i >= 0 {
		rawIP = rawIP[:i]
	}
	ipStr := string(rawIP)

	if !isPrintableASCII(ipStr) {
		return internalAddr{}, &InternalAddrError{
			Raw: fmt.Sprintf("% x", reply),
			Err: fmt.Errorf("non-ASCII bytes in address field"),
		}
	}
	if net.ParseIP(ipStr) == nil || !strings.Contains(ipStr, ".") {
		return internalAddr{}, &InternalAddrError{
			Raw: ipStr,
			Err: fmt.Errorf("not a dotted-quad IPv4 address"),
		}
	}

	return internalAddr{IP: ipStr, Port: port}, nil
}

func indexNUL(b []byte) int {
	for i, c := range b {
		if c == 0 {
			return i
		}
	}
	return -1
}

func isPrintableASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return false
		}
	}
	return true
}
