package sns

import (
	"context"
	"crypto"
	"crypto/rsa"
	_ "crypto/sha1"
	_ "crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"regexp"

	"github.com/rs/zerolog"
	"transcode-notifier/constant"
)

type Verifier interface {
	Verify(ctx context.Context, messageType constant.MessageType, fields map[string]string) (bool, error)
}

type verifier struct {
	fetcher     CertificateFetcher
	hostPattern *regexp.Regexp
}

// NewVerifier returns a Verifier that loads signing certificates through
// fetcher. A nil hostPattern accepts a certificate from any URL.
func NewVerifier(fetcher CertificateFetcher, hostPattern *regexp.Regexp) Verifier {
	return &verifier{
		fetcher:     fetcher,
		hostPattern: hostPattern,
	}
}

func (v *verifier) Verify(ctx context.Context, messageType constant.MessageType, fields map[string]string) (bool, error) {
	canonical, err := CanonicalFor(messageType, fields)
	if err != nil {
		return false, err
	}

	hash, err := signatureHash(fields["SignatureVersion"])
	if err != nil {
		return false, err
	}

	encoded, ok := fields["Signature"]
	if !ok || encoded == "" {
		return false, verificationError("Signature is missing", nil)
	}
	signature, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return false, verificationError("Signature is not valid base64", err)
	}

	certURL := fields["SigningCertURL"]
	if certURL == "" {
		return false, verificationError("SigningCertURL is missing", nil)
	}
	if err := v.checkCertURL(certURL); err != nil {
		return false, err
	}

	cert, err := v.fetcher.Fetch(ctx, certURL)
	if err != nil {
		return false, verificationError("unable to load signing certificate", err)
	}

	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return false, verificationError(fmt.Sprintf("unsupported certificate key type %T", cert.PublicKey), nil)
	}

	h := hash.New()
	h.Write(canonical)
	if err := rsa.VerifyPKCS1v15(pub, hash, h.Sum(nil), signature); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("message_id", fields["MessageId"]).Msg("signature mismatch")
		return false, nil
	}

	return true, nil
}

func (v *verifier) checkCertURL(raw string) error {
	if v.hostPattern == nil {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return verificationError("SigningCertURL is not a valid URL", err)
	}
	if u.Scheme != "https" {
		return verificationError(fmt.Sprintf("SigningCertURL scheme %q is not allowed", u.Scheme), nil)
	}
	if !v.hostPattern.MatchString(u.Hostname()) {
		return verificationError(fmt.Sprintf("SigningCertURL host %q is not allowed", u.Hostname()), nil)
	}
	return nil
}

func signatureHash(version string) (crypto.Hash, error) {
	switch version {
	case "", "1":
		return crypto.SHA1, nil
	case "2":
		return crypto.SHA256, nil
	default:
		return 0, verificationError(fmt.Sprintf("SignatureVersion %q is not supported", version), nil)
	}
}
