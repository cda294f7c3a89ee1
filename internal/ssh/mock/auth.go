package mock

import (
	"bytes"
	"fmt"

	"golang.org/x/crypto/ssh"
)

var ErrUnauthorized = fmt.Errorf("public key is not authorized")

// PublicKeyCallback returns a 'PubKeyCallback' accepting only clients which
// authenticate with one of 'allowed'.
func PublicKeyCallback(allowed ...ssh.PublicKey) PubKeyCallback {
	marshaled := make([][]byte, len(allowed))
	for i, key := range allowed {
		marshaled[i] = key.Marshal()
	}
	return func(_ ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
		offered := key.Marshal()
		for _, m := range marshaled {
			if bytes.Equal(m, offered) {
				return nil, nil
			}
		}
		return nil, ErrUnauthorized
	}
}
