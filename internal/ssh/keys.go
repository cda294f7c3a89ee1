package ssh

// keys.go covers the two ends of SSH key handling webctl deals with: loading
// the PEM private keys EC2 issues for key pairs, and generating throwaway
// ED25519 keys (used to stand up mock servers in tests).

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ssh"
)

// KeyFileExt is the extension EC2 gives downloaded key pair files.
const KeyFileExt = ".pem"

var (
	ErrKeyGen            = fmt.Errorf("failed to generate a 'crypto/ed25519' keypair")
	ErrPubKeyConv        = fmt.Errorf("failed to convert the 'ed25519.PublicKey' to 'ssh.PublicKey'")
	ErrPrivKeyMarshal    = fmt.Errorf("failed to marshal the private key to OpenSSH format")
	ErrSSHFailedKeyParse = fmt.Errorf("failed to parse SSH private key")
	ErrKeyFileMissing    = fmt.Errorf("SSH private key file not found")
)

// ED25519KeyPair is a generated ED25519 key pair.
type ED25519KeyPair struct {
	public  ed25519.PublicKey
	private ed25519.PrivateKey
}

// NewED25519KeyPair generates a 'crypto/ed25519' public+private key pair.
func NewED25519KeyPair() (ED25519KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return ED25519KeyPair{}, fmt.Errorf("%w: %w", ErrKeyGen, err)
	}
	return ED25519KeyPair{public: pub, private: priv}, nil
}

// PublicKey converts the public half to an 'ssh.PublicKey'.
func (kp ED25519KeyPair) PublicKey() (ssh.PublicKey, error) {
	pub, err := ssh.NewPublicKey(kp.public)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPubKeyConv, err)
	}
	return pub, nil
}

// Signer converts the private half to an 'ssh.Signer'.
//
// 'x/crypto/ssh' has no private key type; 'ssh.Signer' fills that role.
func (kp ED25519KeyPair) Signer() (ssh.Signer, error) {
	return ssh.NewSignerFromKey(kp.private)
}

// MarshalPrivateKey PEM-encodes the private half in the OpenSSH format, the
// same shape as a key file on disk.
func (kp ED25519KeyPair) MarshalPrivateKey(comment string) ([]byte, error) {
	block, err := ssh.MarshalPrivateKey(kp.private, comment)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPrivKeyMarshal, err)
	}
	return pem.EncodeToMemory(block), nil
}

// ParseKey attempts to parse the provided 'key' value as a PEM-encoded
// private key (OpenSSH, PKCS#1 and PKCS#8 are all accepted).
//
// If 'phrase' is provided, the key will be parsed assuming encryption. If the
// parse fails with the key it will be reattempted assuming no encryption.
func ParseKey(key, phrase []byte) (ssh.Signer, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: empty key", ErrSSHFailedKeyParse)
	}
	if len(phrase) > 0 {
		signer, err := ssh.ParsePrivateKeyWithPassphrase(key, phrase)
		if err == nil {
			return signer, nil
		}
		// Only an incorrect password suggests the key might be plaintext.
		if !errors.Is(err, x509.IncorrectPasswordError) {
			return nil, fmt.Errorf("%w: %w", ErrSSHFailedKeyParse, err)
		}
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSSHFailedKeyParse, err)
	}
	return signer, nil
}

// KeyPath returns the path of key pair 'name' inside 'dir'.
func KeyPath(dir, name string) string {
	return filepath.Join(dir, name+KeyFileExt)
}

// LoadKey reads and parses the key file for key pair 'name' inside 'dir'.
func LoadKey(dir, name string) (ssh.Signer, error) {
	path := KeyPath(dir, name)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrKeyFileMissing, path)
	} else if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSSHFailedKeyParse, err)
	}
	return ParseKey(data, nil)
}
