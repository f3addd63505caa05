package protocol

import (
	"bufio"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"neorecon/internal/core/scanner/credential"
	"neorecon/internal/pkg/logger"
)

func init() {
	logger.InitWriter(io.Discard, "debug")
}

func closedPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port
}

func listen(t *testing.T) (net.Listener, int) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l, l.Addr().(*net.TCPAddr).Port
}

func withTimeout(t *testing.T, d time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	t.Cleanup(cancel)
	return ctx
}

func TestAll_UniqueNames(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range All() {
		assert.False(t, seen[c.Name()], c.Name())
		seen[c.Name()] = true
	}
	assert.Len(t, seen, 13)
}

func TestIsNetworkError(t *testing.T) {
	assert.True(t, isNetworkError("dial tcp 1.2.3.4:22: i/o timeout"))
	assert.True(t, isNetworkError("dial tcp 127.0.0.1:6379: connect: Connection Refused"))
	assert.False(t, isNetworkError("some weird error"))
}

// startSSHServer 进程内 SSH 服务，只接受一组口令
func startSSHServer(t *testing.T, user, pass string) int {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)

	cfg := &ssh.ServerConfig{
		PasswordCallback: func(meta ssh.ConnMetadata, p []byte) (*ssh.Permissions, error) {
			if meta.User() == user && string(p) == pass {
				return nil, nil
			}
			return nil, fmt.Errorf("password rejected for %q", meta.User())
		},
	}
	cfg.AddHostKey(signer)

	l, port := listen(t)
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				sc, chans, reqs, err := ssh.NewServerConn(conn, cfg)
				if err != nil {
					return
				}
				defer sc.Close()
				go ssh.DiscardRequests(reqs)
				for ch := range chans {
					_ = ch.Reject(ssh.Prohibited, "test server")
				}
			}()
		}
	}()
	return port
}

func TestSSHChecker_Check(t *testing.T) {
	port := startSSHServer(t, "root", "toor")
	c := NewSSHChecker()

	ok, err := c.Check(withTimeout(t, 5*time.Second), "127.0.0.1", port, credential.Auth{Username: "root", Password: "toor"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Check(withTimeout(t, 5*time.Second), "127.0.0.1", port, credential.Auth{Username: "root", Password: "root"})
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestSSHChecker_ConnectionRefused(t *testing.T) {
	ok, err := NewSSHChecker().Check(withTimeout(t, time.Second), "127.0.0.1", closedPort(t), credential.Auth{Username: "root"})
	assert.False(t, ok)
	assert.ErrorIs(t, err, credential.ErrConnectionFailed)
}

func TestSSHChecker_NotSSH(t *testing.T) {
	l, port := listen(t)
	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte("NOT SSH\r\n"))
		io.Copy(io.Discard, conn)
	}()

	ok, err := NewSSHChecker().Check(withTimeout(t, 2*time.Second), "127.0.0.1", port, credential.Auth{Username: "root"})
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestSSHChecker_Classify(t *testing.T) {
	c := NewSSHChecker()
	tests := []struct {
		msg  string
		want error
	}{
		{"ssh: handshake failed: ssh: unable to authenticate, attempted methods [none password], no supported methods remain", nil},
		{"dial tcp 1.2.3.4:22: i/o timeout", credential.ErrConnectionFailed},
		{"dial tcp 127.0.0.1:22: connect: connection refused", credential.ErrConnectionFailed},
		{"ssh: overflow reading version string", credential.ErrProtocolError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.classify(errors.New(tt.msg)), tt.msg)
	}
}

// startFTPServer 只实现登录所需命令的 FTP 桩
func startFTPServer(t *testing.T, accept func(user, pass string) bool) int {
	t.Helper()
	l, port := listen(t)
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go serveFTP(conn, accept)
		}
	}()
	return port
}

func serveFTP(conn net.Conn, accept func(user, pass string) bool) {
	defer conn.Close()
	reply := func(s string) { conn.Write([]byte(s + "\r\n")) }
	reply("220 stub ready")

	var user string
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd, arg, _ := strings.Cut(strings.TrimRight(line, "\r\n"), " ")
		switch strings.ToUpper(cmd) {
		case "USER":
			user = arg
			reply("331 Password required")
		case "PASS":
			if accept(user, arg) {
				reply("230 Logged in")
			} else {
				reply("530 Login incorrect.")
			}
		case "TYPE":
			reply("200 Type set")
		case "QUIT":
			reply("221 Bye")
			return
		default:
			reply("502 Command not implemented")
		}
	}
}

func TestFTPChecker_Check(t *testing.T) {
	port := startFTPServer(t, func(user, _ string) bool { return user == "anonymous" })
	c := NewFTPChecker()

	ok, err := c.Check(withTimeout(t, 3*time.Second), "127.0.0.1", port, credential.Auth{Username: "anonymous", Password: "anonymous@"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Check(withTimeout(t, 3*time.Second), "127.0.0.1", port, credential.Auth{Username: "admin", Password: "admin"})
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestFTPChecker_ConnectionRefused(t *testing.T) {
	ok, err := NewFTPChecker().Check(withTimeout(t, time.Second), "127.0.0.1", closedPort(t), credential.Auth{})
	assert.False(t, ok)
	assert.ErrorIs(t, err, credential.ErrConnectionFailed)
}

func TestMySQLChecker_Classify(t *testing.T) {
	c := NewMySQLChecker()
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"access denied", &mysql.MySQLError{Number: 1045, Message: "Access denied for user 'root'@'localhost'"}, nil},
		{"timeout", errors.New("dial tcp 1.2.3.4:3306: i/o timeout"), credential.ErrConnectionFailed},
		{"bad connection", mysql.ErrInvalidConn, credential.ErrConnectionFailed},
		{"unknown", errors.New("some weird error"), credential.ErrProtocolError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.classify(tt.err))
		})
	}
}

func TestMySQLChecker_ConnectionRefused(t *testing.T) {
	ok, err := NewMySQLChecker().Check(withTimeout(t, time.Second), "127.0.0.1", closedPort(t), credential.Auth{Username: "root"})
	assert.False(t, ok)
	assert.ErrorIs(t, err, credential.ErrConnectionFailed)
}

func TestPostgresChecker_Classify(t *testing.T) {
	c := NewPostgresChecker()
	assert.NoError(t, c.classify(&pq.Error{Code: "28P01"}))
	assert.Equal(t, credential.ErrConnectionFailed, c.classify(&pq.Error{Code: "53300"}))
	assert.Equal(t, credential.ErrConnectionFailed, c.classify(errors.New("dial tcp: connection refused")))
	assert.Equal(t, credential.ErrProtocolError, c.classify(errors.New("pq: unknown response for startup: 'H'")))
}

func TestRedisChecker_Classify(t *testing.T) {
	c := NewRedisChecker()
	tests := []struct {
		msg  string
		want error
	}{
		{"ERR invalid password", nil},
		{"WRONGPASS invalid username-password pair", nil},
		{"NOAUTH Authentication required.", nil},
		{"dial tcp 1.2.3.4:6379: i/o timeout", credential.ErrConnectionFailed},
		{"redis: invalid response: HTTP/1.1 400 Bad Request", credential.ErrProtocolError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.classify(errors.New(tt.msg)), tt.msg)
	}
}

func TestDatabaseClassifiers(t *testing.T) {
	assert.NoError(t, NewMSSQLChecker().classify(errors.New("mssql: login error: Login failed for user 'sa'.")))
	assert.Equal(t, credential.ErrConnectionFailed, NewMSSQLChecker().classify(errors.New("pre-login handshake failed")))

	assert.NoError(t, NewOracleChecker().classify(errors.New("ORA-01017: invalid username/password; logon denied")))
	assert.Equal(t, credential.ErrProtocolError, NewOracleChecker().classify(errors.New("ORA-12514: TNS:listener does not currently know of service")))

	assert.NoError(t, NewClickHouseChecker().classify(errors.New("code: 516, message: default: Authentication failed")))
	assert.Equal(t, credential.ErrConnectionFailed, NewClickHouseChecker().classify(errors.New("dial tcp: i/o timeout")))

	assert.NoError(t, NewMongoChecker().classify(errors.New("connection() error: auth error: sasl conversation error")))
	assert.NoError(t, NewMongoChecker().classify(errors.New("(Unauthorized) command listDatabases requires authentication")))

	assert.NoError(t, NewSMBChecker().classify(errors.New("STATUS_LOGON_FAILURE")))
	assert.Equal(t, credential.ErrConnectionFailed, NewSMBChecker().classify(errors.New("EOF")))
}

func TestElasticsearchChecker_Check(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/_cat/indices":
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`[]`))
		case "/_security/_authenticate":
			if user, pass, ok := r.BasicAuth(); ok && user == "elastic" && pass == "changeme" {
				w.Write([]byte(`{"username":"elastic"}`))
				return
			}
			w.WriteHeader(http.StatusUnauthorized)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	addr := ts.Listener.Addr().(*net.TCPAddr)
	host, port := addr.IP.String(), addr.Port
	c := NewElasticsearchChecker()

	tests := []struct {
		name string
		auth credential.Auth
		want bool
	}{
		{"open cluster", credential.Auth{}, true},
		{"default password", credential.Auth{Username: "elastic", Password: "changeme"}, true},
		{"wrong password", credential.Auth{Username: "elastic", Password: "nope"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := c.Check(withTimeout(t, 3*time.Second), host, port, tt.auth)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestHostPort(t *testing.T) {
	assert.Equal(t, "127.0.0.1:22", hostPort("127.0.0.1", 22))
	assert.Equal(t, "[::1]:"+strconv.Itoa(6379), hostPort("::1", 6379))
}
