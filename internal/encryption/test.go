package encryption

import (
	"bytes"
	"fmt"
	"io"

	"filechk/internal/catalog"
)

// testHeader marks TestEncryptor output so it differs from the plaintext.
var testHeader = []byte("FCENC\x00\x00\x00")

// TestEncryptor is a deterministic, reversible stand-in for AgeEncryptor.
// It prepends testHeader on Encrypt and strips it on Decrypt.
type TestEncryptor struct {
	setupCalled bool
	passphrase  string
}

var _ catalog.Encryptor = (*TestEncryptor)(nil)

// NewTestEncryptor creates a TestEncryptor that accepts any passphrase.
func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup(passphrase string) error {
	e.setupCalled = true
	e.passphrase = passphrase
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(testHeader); err != nil {
		return fmt.Errorf("writing test header: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

// Unlock rejects a passphrase that differs from the one given to Setup.
func (e *TestEncryptor) Unlock(passphrase string) (catalog.DecryptionContext, error) {
	if e.setupCalled && passphrase != e.passphrase {
		return nil, fmt.Errorf("wrong passphrase")
	}
	return &TestDecryptionContext{}, nil
}

func (e *TestEncryptor) IsConfigured() bool {
	return true
}

// TestDecryptionContext strips the header added by TestEncryptor.
type TestDecryptionContext struct{}

var _ catalog.DecryptionContext = (*TestDecryptionContext)(nil)

func (c *TestDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	header := make([]byte, len(testHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading test header: %w", err)
	}
	if !bytes.Equal(header, testHeader) {
		return fmt.Errorf("invalid test encryption header")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
