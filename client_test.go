package exasol

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingWSHandler is queuedWSHandler plus a record of every outbound
// frame, so login's password-encryption step can be inspected without a
// live server.
type recordingWSHandler struct {
	queuedWSHandler
	writes [][]byte
}

func (h *recordingWSHandler) WriteMessage(messageType int, data []byte) error {
	h.writes = append(h.writes, data)
	return h.queuedWSHandler.WriteMessage(messageType, data)
}

func (h *recordingWSHandler) Connect(url.URL, *tls.Config, time.Duration) error { return nil }

func TestLoginEncryptsPasswordWithServerPublicKey(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	loginRes := map[string]interface{}{
		"status": "ok",
		"responseData": map[string]interface{}{
			"publicKeyModulus":  hex.EncodeToString(priv.PublicKey.N.Bytes()),
			"publicKeyExponent": hex.EncodeToString(bigEndianUint(priv.PublicKey.E)),
		},
	}
	authRes := map[string]interface{}{
		"status": "ok",
		"responseData": map[string]interface{}{
			"sessionId": 42,
		},
	}
	loginJSON, err := json.Marshal(loginRes)
	require.NoError(t, err)
	authJSON, err := json.Marshal(authRes)
	require.NoError(t, err)

	h := &recordingWSHandler{queuedWSHandler: queuedWSHandler{responses: [][]byte{loginJSON, authJSON}}}
	c := &Conn{
		log:  newDefaultLogger(),
		wsh:  h,
		Conf: ConnConf{Username: "sys", Password: "secret-password"},
	}

	require.NoError(t, c.login())
	require.Len(t, h.writes, 2, "login sends exactly two frames: login then auth")

	var sentAuth struct {
		Password string `json:"password"`
	}
	require.NoError(t, json.Unmarshal(h.writes[1], &sentAuth))

	encPass, err := base64.StdEncoding.DecodeString(sentAuth.Password)
	require.NoError(t, err)

	plain, err := rsa.DecryptPKCS1v15(rand.Reader, priv, encPass)
	require.NoError(t, err)
	assert.Equal(t, "secret-password", string(plain))
	assert.EqualValues(t, 42, c.SessionID)
}

func bigEndianUint(v int) []byte {
	if v == 0 {
		return []byte{0}
	}
	var b []byte
	for v > 0 {
		b = append([]byte{byte(v & 0xff)}, b...)
		v >>= 8
	}
	return b
}
