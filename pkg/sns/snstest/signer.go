// Package snstest signs SNS envelopes with a throwaway certificate served
// from an httptest server, for tests of code that verifies them.
package snstest

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	_ "crypto/sha1"
	_ "crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"transcode-notifier/constant"
	"transcode-notifier/pkg/sns"
)

type Signer struct {
	Key    *rsa.PrivateKey
	Cert   *x509.Certificate
	PEM    []byte
	Server *httptest.Server

	fetches atomic.Int32
}

func NewSigner(t testing.TB) *Signer {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: "sns.test.amazonaws.com"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parse certificate: %v", err)
	}

	s := &Signer{
		Key:  key,
		Cert: cert,
		PEM:  pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.fetches.Add(1)
		_, _ = w.Write(s.PEM)
	}))
	t.Cleanup(s.Server.Close)

	return s
}

func (s *Signer) CertURL() string {
	return s.Server.URL + "/SimpleNotificationService.pem"
}

// Fetches reports how many times the certificate has been served.
func (s *Signer) Fetches() int {
	return int(s.fetches.Load())
}

// Sign sets SigningCertURL, SignatureVersion (when empty) and Signature on fields.
func (s *Signer) Sign(t testing.TB, messageType constant.MessageType, fields map[string]string) map[string]string {
	t.Helper()

	fields["SigningCertURL"] = s.CertURL()
	if fields["SignatureVersion"] == "" {
		fields["SignatureVersion"] = "1"
	}

	hash := crypto.SHA1
	if fields["SignatureVersion"] == "2" {
		hash = crypto.SHA256
	}

	canonical, err := sns.CanonicalFor(messageType, fields)
	if err != nil {
		t.Fatalf("canonical message: %v", err)
	}
	h := hash.New()
	h.Write(canonical)
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.Key, hash, h.Sum(nil))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	fields["Signature"] = base64.StdEncoding.EncodeToString(sig)

	return fields
}
