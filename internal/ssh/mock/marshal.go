package mock

import "golang.org/x/crypto/ssh"

// exitStatus is the body of an 'exit-status' channel request (RFC 4254,
// section 6.10).
type exitStatus struct {
	Status uint32
}

func marshalExitStatus(status uint32) []byte {
	return ssh.Marshal(exitStatus{Status: status})
}
