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
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"math/big"
	"strings"
	"time"
)

// etlJobCert is the self-signed identity minted for one ETL job's worker
// sockets when TLS is requested. One keypair/cert is shared by pointer
// across every worker of that job and is never reused by a later job.
type etlJobCert struct {
	tlsCert      tls.Certificate
	pubKeyDERHex string
}

// mintEtlCert generates an RSA-2048 keypair and self-signs a minimal X.509
// certificate over it. There are no hostnames to bind: the cluster dials
// the internal IP the handshake reported, never a name, so a SAN list
// would be meaningless here.
func mintEtlCert() (*etlJobCert, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, &TlsError{Op: "generate ETL certificate key", Err: err}
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, &TlsError{Op: "generate ETL certificate serial", Err: err}
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: "go-exasol-client ETL worker"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, &TlsError{Op: "self-sign ETL certificate", Err: err}
	}

	pubKeyDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, &TlsError{Op: "marshal ETL public key", Err: err}
	}

	return &etlJobCert{
		tlsCert: tls.Certificate{
			Certificate: [][]byte{der},
			PrivateKey:  key,
		},
		pubKeyDERHex: strings.ToUpper(hex.EncodeToString(pubKeyDER)),
	}, nil
}

// serverConfig returns a *tls.Config suitable for wrapping a handshaken
// worker socket as a TLS server using this job's minted identity.
func (c *etlJobCert) serverConfig() *tls.Config {
	return &tls.Config{Certificates: []tls.Certificate{c.tlsCert}}
}
