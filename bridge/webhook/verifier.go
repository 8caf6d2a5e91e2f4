// Package webhook receives and authenticates the chat provider's inbound
// events and choreographs the immediate-ack / deferred-completion flow.
package webhook

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// Verifier checks that an inbound event was signed by the provider's RSA
// key (PKCS#1 v1.5 over SHA-256 of the raw body).
//
// The public key is parsed lazily and exactly once; the first caller
// constructs it, concurrent callers block until it is ready. Every failure
// mode — bad base64, bad PEM, signature mismatch — fails closed: Verify
// returns false, never an error.
type Verifier struct {
	pemData string
	once    sync.Once
	key     *rsa.PublicKey
	keyErr  error
	logger  zerolog.Logger
}

func NewVerifier(publicKeyPEM string, logger zerolog.Logger) *Verifier {
	return &Verifier{
		pemData: publicKeyPEM,
		logger:  logger.With().Str("component", "verifier").Logger(),
	}
}

// Verify reports whether signatureB64 is a valid signature over body.
func (v *Verifier) Verify(signatureB64 string, body []byte) bool {
	v.once.Do(v.loadKey)
	if v.keyErr != nil {
		v.logger.Error().Err(v.keyErr).Msg("provider public key unavailable")
		return false
	}

	signature, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		v.logger.Debug().Msg("signature is not valid base64")
		return false
	}

	digest := sha256.Sum256(body)
	if err := rsa.VerifyPKCS1v15(v.key, crypto.SHA256, digest[:], signature); err != nil {
		return false
	}
	return true
}

func (v *Verifier) loadKey() {
	block, _ := pem.Decode([]byte(v.pemData))
	if block == nil {
		v.keyErr = errors.New("no PEM block in provider public key")
		return
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		// Some providers hand out PKCS#1-encoded keys instead.
		if rsaKey, pkcs1Err := x509.ParsePKCS1PublicKey(block.Bytes); pkcs1Err == nil {
			v.key = rsaKey
			return
		}
		v.keyErr = err
		return
	}

	rsaKey, ok := parsed.(*rsa.PublicKey)
	if !ok {
		v.keyErr = errors.New("provider public key is not RSA")
		return
	}
	v.key = rsaKey
}
