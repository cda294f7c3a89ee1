package mock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

type (
	// server represents an SSH server.
	//
	// server is constructed by 'NewServer', can be started (begin listening and
	// serving connections) by calling its 'ListenAndServe' method. When finished,
	// a call to 'Shutdown' will gracefully shutdown the TCP listener.
	server struct {
		// The SSH server configuration.
		//
		// These options may be modified _prior_ to calling 'ListenAndServe',
		// modifying after will have no effect.
		Config *ssh.ServerConfig

		// Exec, when set, decides the outcome of every 'exec' request: the
		// stdout to write back and the exit status to report. When nil every
		// command succeeds silently.
		Exec ExecFunc

		// Holds the closure we'll use to shut down the Server.
		cancel context.CancelFunc

		// The TCP port to listen on, 0 picks a free one.
		port uint16

		mu       sync.Mutex
		listener *net.TCPListener

		// 'Waiter' is a 'sync.WaitGroup'-like construct, save that it accepts a
		// 'context.Context' on its 'Done' method, supporting deadlines.
		wait Waiter
	}
	// PubKeyCallback is the function called when the server receives an
	// authentication attempt via public key. Any non-nil error returned will
	// immediately abort the connection.
	PubKeyCallback func(ssh.ConnMetadata, ssh.PublicKey) (*ssh.Permissions, error)

	// ExecFunc maps an executed command to its stdout and exit status.
	ExecFunc func(command string) (stdout string, status uint32)

	// ReqChannel produces all *ssh.Requests, which are out-of-band well-known
	// marshaled data structures which arrive from either a specific channel or
	// the ssh.SSHConn. 'exec' requests have their payload decoded to the bare
	// command string.
	ReqChannel <-chan *ssh.Request

	// MsgChannel produces all messages which arrive directly over the ssh
	// connection (think simple writes to stdin on the client's side), one line
	// at a time.
	MsgChannel <-chan string
)

func NewServer(t *testing.T, port uint16, signer ssh.Signer, fn PubKeyCallback) (*server, error) {
	if t == nil {
		return nil, fmt.Errorf("no *testing.T provided in call to NewServer")
	}
	require.NotNil(t, fn, "a non-nil public key callback is required")
	require.NotNil(t, signer, "a non-nil ssh.Signer is required")
	config := &ssh.ServerConfig{
		PublicKeyCallback: fn,
	}
	config.AddHostKey(signer)
	return &server{
		Config: config,

		wait: NewWaiter(),
		port: port,
	}, nil
}

// Port returns the TCP port the server is listening on. Only meaningful after
// 'ListenAndServe'.
func (self *server) Port() uint16 {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.listener == nil {
		return self.port
	}
	return uint16(self.listener.Addr().(*net.TCPAddr).Port)
}

func (self *server) ListenAndServe(t *testing.T, ctx context.Context) (ReqChannel, MsgChannel, error) {
	// We'll use this 'context.CancelFunc' to shutdown the server in the
	// 'Shutdown' method.
	ctx, self.cancel = context.WithCancel(ctx)
	listener, err := net.ListenTCP("tcp", &net.TCPAddr{
		IP:   net.IPv4(127, 0, 0, 1),
		Port: int(self.port),
	})
	require.NoError(t, err, "failed to listen on TCP/%d: %s", self.port, err)
	self.mu.Lock()
	self.listener = listener
	self.mu.Unlock()
	outReqChan := make(chan *ssh.Request, 256)
	outMsgChan := make(chan string, 256)
	self.wait.Add()
	go self.serve(t, ctx, listener, outReqChan, outMsgChan)
	return outReqChan, outMsgChan, nil
}

func (self *server) serve(
	t *testing.T,
	ctx context.Context,
	listener *net.TCPListener,
	outReqChan chan<- *ssh.Request,
	outMsgChan chan<- string,
) {
	defer self.wait.Done()
	var conns sync.WaitGroup
	for {
		select {
		case <-ctx.Done():
			require.NoError(t, listener.Close())
			// Only close the outbound channels once no handler can write to them.
			conns.Wait()
			close(outReqChan)
			close(outMsgChan)
			return
		default:
			// Don't block forever.
			_ = listener.SetDeadline(time.Now().Add(100 * time.Millisecond))
			conn, err := listener.AcceptTCP()
			if err != nil {
				var operr *net.OpError
				if errors.As(err, &operr) && operr.Timeout() {
					continue
				}
			}
			require.NoError(t, err)
			self.wait.Add()
			conns.Add(1)
			go func() {
				defer conns.Done()
				self.handleTCPConn(t, ctx, conn, outReqChan, outMsgChan)
			}()
		}
	}
}

// handleTCPConn attempts an SSH handshake over the provided '*net.TCPConn'.
//
// If successful it will continuously drain the inbound channel requests
// channel, accepting 'session' channel requests and handling each in a
// separate Goroutine. It returns when the client disconnects.
func (self *server) handleTCPConn(
	t *testing.T,
	ctx context.Context,
	conn *net.TCPConn,
	outReqChan chan<- *ssh.Request,
	outMsgChan chan<- string,
) {
	defer self.wait.Done()
	sshConn, inChanReqChan, inReqChan, err := ssh.NewServerConn(conn, self.Config)
	if err != nil {
		// Rejected authentication lands here; the client sees the failure.
		log.Debug("SSH handshake failed", "error", err)
		_ = conn.Close()
		return
	}
	defer sshConn.Close()
	go ssh.DiscardRequests(inReqChan)
	var channels sync.WaitGroup
	defer channels.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case newChannelRequest, ok := <-inChanReqChan:
			if !ok {
				return
			}
			if newChannelRequest.ChannelType() != "session" {
				_ = newChannelRequest.Reject(ssh.UnknownChannelType, "unknown channel type")
				continue
			}
			channel, inReqChan, err := newChannelRequest.Accept()
			require.NoError(t, err)
			inMsgChan := asyncRead(channel)
			self.wait.Add()
			channels.Add(1)
			go func() {
				defer channels.Done()
				self.handleChannel(t, ctx, channel, inMsgChan, inReqChan, outReqChan, outMsgChan)
			}()
		}
	}
}

// handleChannel processes all in-band and out-of-band messages delivered over
// its 'ssh.Channel'.
//
// INBOUND REQUESTS of type 'exec' are ACKed, answered with the stdout and exit
// status chosen by 'Exec', and delivered over 'outReqChan' with their payload
// decoded to the command string. 'env' and 'pty-req' requests are ACKed and
// otherwise ignored.
//
// INBOUND MESSAGES are split into lines and delivered over 'outMsgChan'.
//
// This function exits when either the 'context.Context' is marked done, or
// the client signals EOF on the channel, whichever comes first. On exit, the
// SSH channel is closed.
func (self *server) handleChannel(
	t *testing.T,
	ctx context.Context,
	channel ssh.Channel,
	inMsgChan <-chan string,
	inReqChan <-chan *ssh.Request,
	outReqChan chan<- *ssh.Request,
	outMsgChan chan<- string,
) {
	defer func() {
		self.wait.Done()
		if err := channel.Close(); err != nil && !errors.Is(err, io.EOF) {
			log.Warn("failed to close channel", "error", err)
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case channelRequest, ok := <-inReqChan:
			if !ok {
				inReqChan = nil
				continue
			}
			switch channelRequest.Type {
			case "exec":
				var payload struct{ Command string }
				require.NoError(t, ssh.Unmarshal(channelRequest.Payload, &payload))
				log.Debug("received an 'exec' channel request", "command", payload.Command)
				if channelRequest.WantReply {
					require.NoError(t, channelRequest.Reply(true, nil))
				}
				var (
					stdout string
					status uint32
				)
				if self.Exec != nil {
					stdout, status = self.Exec(payload.Command)
				}
				if stdout != "" {
					_, err := channel.Write([]byte(stdout))
					require.NoError(t, err)
				}
				_, err := channel.SendRequest("exit-status", false, marshalExitStatus(status))
				require.NoError(t, err)
				channelRequest.Payload = []byte(payload.Command)
				outReqChan <- channelRequest
			case "env", "pty-req":
				if channelRequest.WantReply {
					_ = channelRequest.Reply(true, nil)
				}
			default:
				log.Error("received an unsupported channel request", "type", channelRequest.Type)
				if channelRequest.WantReply {
					_ = channelRequest.Reply(false, nil)
				}
			}
		case channelMessage, more := <-inMsgChan:
			channelMessage = strings.TrimSpace(channelMessage)
			for line := range strings.SplitSeq(channelMessage, "\n") {
				line = strings.TrimSpace(line)
				if line == "" {
					continue
				}
				log.Debug("sending channel message", "message", line)
				outMsgChan <- line
			}
			// 'asyncRead' closes the channel on EOF: the client is done sending.
			if !more {
				return
			}
		}
	}
}

var ErrServerNotStarted = fmt.Errorf(
	"shutdown called without a call to 'ListenAndServe' first",
)

// Shutdown calls the 'context.CancelFunc' and waits for all Goroutines to exit.
func (self *server) Shutdown(ctx context.Context) error {
	if self.cancel == nil {
		return ErrServerNotStarted
	}
	self.cancel()
	return self.wait.WaitContext(ctx)
}
