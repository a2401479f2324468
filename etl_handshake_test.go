package exasol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseHandshakeReply(t *testing.T) {
	reply := []byte{
		0x00, 0x00, 0x00, 0x00, 0x50, 0x1F, 0x00, 0x00,
		0x31, 0x30, 0x2E, 0x32, 0x35, 0x2E, 0x30, 0x2E,
		0x32, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}
	addr, err := parseHandshakeReply(reply)
	assert.NoError(t, err)
	assert.Equal(t, uint16(8016), addr.Port)
	assert.Equal(t, "10.25.0.2", addr.IP)
	assert.Equal(t, "10.25.0.2:8016", addr.String())
}

func TestParseHandshakeReplyWrongSize(t *testing.T) {
	_, err := parseHandshakeReply([]byte{0x01, 0x02})
	assert.Error(t, err)
	var addrErr *InternalAddrError
	assert.ErrorAs(t, err, &addrErr)
}

func TestParseHandshakeReplyNonASCII(t *testing.T) {
	reply := make([]byte, tunnelHandshakeReplySize)
	reply[4] = 0x01
	reply[8] = 0xff
	_, err := parseHandshakeReply(reply)
	assert.Error(t, err)
	var addrErr *InternalAddrError
	assert.ErrorAs(t, err, &addrErr)
}

func TestParseHandshakeReplyNotDottedQuad(t *testing.T) {
	reply := make([]byte, tunnelHandshakeReplySize)
	copy(reply[8:], "localhost")
	_, err := parseHandshakeReply(reply)
	assert.Error(t, err)
}

func TestParseHandshakeReplyIPv6Rejected(t *testing.T) {
	reply := make([]byte, tunnelHandshakeReplySize)
	copy(reply[8:], "::1")
	_, err := parseHandshakeReply(reply)
	assert.Error(t, err, "the tunnel only ever hands back an internal IPv4 address")
}
