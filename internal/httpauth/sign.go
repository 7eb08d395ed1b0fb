// Package httpauth signs outgoing requests with RSA-PSS and manages
// the lifecycle of the session token the signed login call returns.
package httpauth

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"time"
)

// Credentials holds the API key id and private key used to sign
// requests.
type Credentials struct {
	KeyID      string
	PrivateKey *rsa.PrivateKey
}

// LoadCredentials loads credentials from a key id and a PEM-encoded
// private key file path.
func LoadCredentials(keyID, privateKeyPath string) (*Credentials, error) {
	if keyID == "" {
		return nil, fmt.Errorf("httpauth: API key id is required")
	}
	if privateKeyPath == "" {
		return nil, fmt.Errorf("httpauth: private key path is required")
	}

	privateKey, err := LoadPrivateKey(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("httpauth: load private key: %w", err)
	}

	return &Credentials{KeyID: keyID, PrivateKey: privateKey}, nil
}

// LoadPrivateKey loads an RSA private key from a PEM file, accepting
// both PKCS#8 and PKCS#1 encodings.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("httpauth: read key file: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("httpauth: failed to decode PEM block")
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("httpauth: key is not an RSA private key")
		}
		return rsaKey, nil
	}

	rsaKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("httpauth: parse private key: %w", err)
	}
	return rsaKey, nil
}

// SignRequest produces the signature headers for method and path.
// Message format is timestamp_ms + method + path, SHA-256 hashed and
// signed with RSA-PSS.
func (c *Credentials) SignRequest(method, path string) (map[string]string, error) {
	timestampMs := time.Now().UnixMilli()

	signature, err := c.generateSignature(timestampMs, method, path)
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"X-API-Key-ID":    c.KeyID,
		"X-API-Timestamp": fmt.Sprintf("%d", timestampMs),
		"X-API-Signature": signature,
	}, nil
}

func (c *Credentials) generateSignature(timestampMs int64, method, path string) (string, error) {
	message := fmt.Sprintf("%d%s%s", timestampMs, method, path)
	hashed := sha256.Sum256([]byte(message))

	signature, err := rsa.SignPSS(
		rand.Reader,
		c.PrivateKey,
		crypto.SHA256,
		hashed[:],
		&rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash},
	)
	if err != nil {
		return "", fmt.Errorf("httpauth: sign message: %w", err)
	}

	return base64.StdEncoding.EncodeToString(signature), nil
}
