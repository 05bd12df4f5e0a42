package main

import (
	"bytes"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *HtpasswdStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "htpasswd")
	require.NoError(t, os.WriteFile(path, []byte("alice:s3cret\n"), 0600))
	store, err := LoadHtpasswd(path)
	require.NoError(t, err)
	return store
}

func setupSubstCfg(t *testing.T) {
	t.Helper()
	old := *cfg.opt
	t.Cleanup(func() { *cfg.opt = old })
	cfg.opt.BackUser = "proxyuser"
	cfg.opt.BackPass = "proxypass"
}

// memClientConn captures what a session writes toward its client.
// only Write is ever called by the filters under test.
type memClientConn struct {
	net.Conn
	buf bytes.Buffer
}

func (m *memClientConn) Write(p []byte) (int, error) {
	return m.buf.Write(p)
}

func newFilterSession(t *testing.T, store *HtpasswdStore) (*SESSION, *memClientConn) {
	t.Helper()
	client := &memClientConn{}
	return &SESSION{store: store, client: client}, client
}

func TestFilterClientLineSubstitution(t *testing.T) {
	setupSubstCfg(t)
	s, client := newFilterSession(t, testStore(t))

	// USER is held back, the client gets a local 381
	out := s.filterClientLine([]byte("AUTHINFO USER alice"))
	assert.Nil(t, out)
	assert.Equal(t, "alice", s.claimedUser)
	assert.Equal(t, "381 Password required"+CRLF, client.buf.String())
	assert.False(t, s.authenticated)

	// valid pair: the operator's credentials go upstream in one burst
	// and authenticated becomes terminal
	out = s.filterClientLine([]byte("AUTHINFO PASS s3cret"))
	assert.Equal(t, "AUTHINFO USER proxyuser"+CRLF+"AUTHINFO PASS proxypass", string(out))
	assert.True(t, s.authenticated)
	assert.True(t, s.swallow381)

	// after authentication everything passes unmodified, AUTHINFO too
	out = s.filterClientLine([]byte("AUTHINFO USER other"))
	assert.Equal(t, "AUTHINFO USER other", string(out))
	out = s.filterClientLine([]byte("GROUP misc.test"))
	assert.Equal(t, "GROUP misc.test", string(out))
}

func TestFilterClientLineValidationFailure(t *testing.T) {
	setupSubstCfg(t)
	s, _ := newFilterSession(t, testStore(t))

	out := s.filterClientLine([]byte("AUTHINFO USER alice"))
	assert.Nil(t, out)

	// unknown pair: the client's own USER and PASS lines go upstream
	// verbatim, the backend decides
	out = s.filterClientLine([]byte("AUTHINFO PASS wrong"))
	assert.Equal(t, "AUTHINFO USER alice"+CRLF+"AUTHINFO PASS wrong", string(out))
	assert.False(t, s.authenticated)
}

func TestFilterClientLinePassWithoutUser(t *testing.T) {
	setupSubstCfg(t)
	s, client := newFilterSession(t, testStore(t))

	// out-of-sequence PASS: nothing held back, no crash, verbatim
	out := s.filterClientLine([]byte("AUTHINFO PASS s3cret"))
	assert.Equal(t, "AUTHINFO PASS s3cret", string(out))
	assert.False(t, s.authenticated)
	assert.Zero(t, client.buf.Len())
}

func TestFilterClientLineNoStore(t *testing.T) {
	setupSubstCfg(t)
	// no credential store configured: substitution disabled from the start
	s := &SESSION{store: nil, authenticated: true}

	for _, line := range []string{"AUTHINFO USER alice", "AUTHINFO PASS s3cret", "MODE READER"} {
		out := s.filterClientLine([]byte(line))
		assert.Equal(t, line, string(out))
	}
}

func TestFilterClientLineIdentityForOtherCommands(t *testing.T) {
	setupSubstCfg(t)
	s, _ := newFilterSession(t, testStore(t))

	for _, line := range []string{"ARTICLE <a@b>", "LIST ACTIVE.TIMES", "random payload", ""} {
		out := s.filterClientLine([]byte(line))
		assert.Equal(t, line, string(out), "line=%q", line)
	}
}

func TestFilterBackendLineSwallowsInterim381(t *testing.T) {
	setupSubstCfg(t)
	s, _ := newFilterSession(t, testStore(t))

	s.filterClientLine([]byte("AUTHINFO USER alice"))
	s.filterClientLine([]byte("AUTHINFO PASS s3cret"))

	// the upstream's 381 answers the burst's USER line, the client
	// already got ours: drop exactly one
	assert.Nil(t, s.filterBackendLine([]byte("381 PASS required")))
	assert.Equal(t, "281 Authentication accepted", string(s.filterBackendLine([]byte("281 Ok"))))
	// later 381s pass through normalized
	assert.Equal(t, "381 Password required", string(s.filterBackendLine([]byte("381 PASS required"))))
}

func TestFilterBackendLineNormalizesWithoutBurst(t *testing.T) {
	setupSubstCfg(t)
	s, _ := newFilterSession(t, testStore(t))

	assert.Equal(t, "200 Service available, posting allowed", string(s.filterBackendLine([]byte("200 hi there"))))
	assert.Equal(t, "381 Password required", string(s.filterBackendLine([]byte("381 More info"))))
}

func TestRelayLinesFramingAndTransform(t *testing.T) {
	src := strings.NewReader("481 nope\r\nBARE LF LINE\npayload stays\r\nfinal fragment")
	var dst bytes.Buffer
	err := relayLines(&dst, src, NormalizeResponse, "TMP_TESTbytes")
	require.NoError(t, err)
	assert.Equal(t,
		"481 Authentication failed\r\n"+
			"BARE LF LINE\r\n"+
			"payload stays\r\n"+
			"final fragment",
		dst.String())
}

func TestRelayLinesDropsSwallowedLines(t *testing.T) {
	src := strings.NewReader("one\r\ntwo\r\nthree\r\n")
	var dst bytes.Buffer
	drop := func(line []byte) []byte {
		if string(line) == "two" {
			return nil
		}
		return line
	}
	err := relayLines(&dst, src, drop, "TMP_TESTbytes")
	require.NoError(t, err)
	assert.Equal(t, "one\r\nthree\r\n", dst.String())
}

func TestRelayLinesIdentity(t *testing.T) {
	// non-AUTHINFO traffic is the identity function modulo CRLF
	setupSubstCfg(t)
	s, _ := newFilterSession(t, testStore(t))
	src := strings.NewReader("GROUP misc.test\r\nHEAD 1\r\nsome article line\r\n.\r\n")
	var dst bytes.Buffer
	err := relayLines(&dst, src, s.filterClientLine, "TMP_TESTbytes")
	require.NoError(t, err)
	assert.Equal(t, "GROUP misc.test\r\nHEAD 1\r\nsome article line\r\n.\r\n", dst.String())
}
