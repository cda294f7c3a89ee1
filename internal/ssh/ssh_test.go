package ssh

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/chainguard-dev/webctl/internal/ssh/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// The SSH server construction binds to loopback only.
const mockListenHost = "127.0.0.1"

type fixture struct {
	client  *ssh.Client
	server  interface{ Shutdown(context.Context) error }
	reqs    mock.ReqChannel
	msgs    mock.MsgChannel
	hostKey ssh.PublicKey
	port    uint16
}

// newFixture stands up a mock SSH server on a free port, answering commands
// with 'exec', and connects a client to it.
func newFixture(t *testing.T, exec mock.ExecFunc) fixture {
	t.Helper()
	slog.SetLogLoggerLevel(slog.LevelDebug)
	mock.SetLogger(slog.Default())
	// The "user" keypair: the client signs with it, the server authorizes it.
	userKeys, err := NewED25519KeyPair()
	require.NoError(t, err)
	userSigner, err := userKeys.Signer()
	require.NoError(t, err)
	userPubKey, err := userKeys.PublicKey()
	require.NoError(t, err)
	// The "server" keypair: the host key.
	serverKeys, err := NewED25519KeyPair()
	require.NoError(t, err)
	serverSigner, err := serverKeys.Signer()
	require.NoError(t, err)
	serverPubKey, err := serverKeys.PublicKey()
	require.NoError(t, err)

	server, err := mock.NewServer(t, 0, serverSigner, mock.PublicKeyCallback(userPubKey))
	require.NoError(t, err)
	server.Exec = exec
	reqs, msgs, err := server.ListenAndServe(t, t.Context())
	require.NoError(t, err)

	client, err := Connect(mockListenHost, server.Port(), "ec2-user", userSigner, serverPubKey)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		require.NoError(t, server.Shutdown(ctx))
	})
	return fixture{client: client, server: server, reqs: reqs, msgs: msgs, hostKey: serverPubKey, port: server.Port()}
}

func TestExecIn(t *testing.T) {
	f := newFixture(t, nil)
	// Our mock server produces no stdout for these commands, so we discard
	// those returned values.
	const cmd1 = "echo 'Hello, world!'"
	const cmd2 = "echo 'Goodbyte, world!'"
	_, _, err := ExecIn(f.client, ShellBash, cmd1, cmd2)
	require.NoError(t, err)
	// Expect an 'exec' request stipulating the 'Bash' shell.
	req := <-f.reqs
	require.Equal(t, "exec", req.Type)
	require.Equal(t, "/usr/bin/env bash", string(req.Payload))
	// Expect the commands in the order we sent them in.
	require.Equal(t, cmd1, <-f.msgs)
	require.Equal(t, cmd2, <-f.msgs)
}

func TestExec(t *testing.T) {
	f := newFixture(t, func(command string) (string, uint32) {
		switch {
		case strings.HasPrefix(command, "python3"):
			return "", 127
		case strings.HasPrefix(command, "cat"):
			return "hello\n", 0
		default:
			return "", 2
		}
	})

	t.Run("stdout-and-success", func(t *testing.T) {
		stdout, _, err := Exec(f.client, "cat index.html")
		require.NoError(t, err)
		assert.Equal(t, "hello\n", stdout)
		status, ok := ExitStatus(err)
		assert.True(t, ok)
		assert.Equal(t, 0, status)
		req := <-f.reqs
		assert.Equal(t, "cat index.html", string(req.Payload))
	})

	t.Run("non-zero-exit-status", func(t *testing.T) {
		_, _, err := Exec(f.client, "python3 check_webserver.py")
		require.ErrorIs(t, err, ErrCommand)
		status, ok := ExitStatus(err)
		require.True(t, ok)
		assert.Equal(t, 127, status)
		<-f.reqs
	})

	t.Run("long-commands-decode", func(t *testing.T) {
		cmd := "ls " + strings.Repeat("a", 300)
		_, _, err := Exec(f.client, cmd)
		status, _ := ExitStatus(err)
		assert.Equal(t, 2, status)
		req := <-f.reqs
		assert.Equal(t, cmd, string(req.Payload))
	})
}

func TestUpload(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, Upload(f.client, strings.NewReader("line one\nline two\n"), "cat > index.html"))
	req := <-f.reqs
	assert.Equal(t, "cat > index.html", string(req.Payload))
	assert.Equal(t, "line one", <-f.msgs)
	assert.Equal(t, "line two", <-f.msgs)
}

func TestConnectRejectsUnknownHostKey(t *testing.T) {
	f := newFixture(t, nil)
	other, err := NewED25519KeyPair()
	require.NoError(t, err)
	otherPub, err := other.PublicKey()
	require.NoError(t, err)
	signer, err := other.Signer()
	require.NoError(t, err)

	_, err = Connect(mockListenHost, f.port, "ec2-user", signer, otherPub)
	require.ErrorIs(t, err, ErrDial)
	assert.Contains(t, err.Error(), ErrHostKeyMismatch.Error())
}

func TestExitStatus(t *testing.T) {
	status, ok := ExitStatus(nil)
	assert.True(t, ok)
	assert.Equal(t, 0, status)

	status, ok = ExitStatus(fmt.Errorf("%w: connection reset", ErrSession))
	assert.False(t, ok)
	assert.Equal(t, -1, status)
}

func TestDialAddr(t *testing.T) {
	for _, tc := range []struct {
		host string
		want string
	}{
		{"192.168.255.50", "192.168.255.50:33"},
		{"2001:db8:3333:4444:5555:6666:7777:8888", "[2001:db8:3333:4444:5555:6666:7777:8888]:33"},
		{"::ffff:10.0.0.1", "10.0.0.1:33"},
		{"localhost", "127.0.0.1:33"},
	} {
		got, err := dialAddr(tc.host, 33)
		require.NoError(t, err, tc.host)
		assert.Equal(t, tc.want, got, tc.host)
	}

	for _, host := range []string{"192.168.255.", "2001:db8:3333:4444:5555:6666:7777"} {
		got, err := dialAddr(host, 33)
		require.ErrorIs(t, err, ErrResolve, host)
		assert.Empty(t, got, host)
	}
}
