package main

import (
	"bufio"
	"bytes"
	"io"
	"log"
	"net"
	"sync"
)

// session states
const (
	StateConnecting = iota
	StateRelaying
	StateClosing
	StateClosed
)

// SESSION is one accepted client connection and its backend leg.
// the two directional pumps run concurrently for the lifetime of the
// session: client->backend through the auth substitution filter and
// backend->client through the response normalizer. nothing in here is
// shared with other sessions.
type SESSION struct {
	mux     sync.RWMutex
	proxy   *PROXY // the parent where we belong to
	sessId  uint64
	client  net.Conn
	backend net.Conn
	store   *HtpasswdStore // nil = substitution disabled, pure pass-through
	state   int

	// auth substitution state. claimedUser/claimedLine/authenticated
	// are only touched by the client->backend pump, so they need no
	// lock. authenticated is terminal: once the backend session is
	// authenticated every line passes unmodified. swallow381 crosses
	// over to the backend->client pump and goes through mux.
	claimedUser   string
	claimedLine   []byte // the held-back AUTHINFO USER line, verbatim
	authenticated bool
	swallow381    bool
} // end type SESSION struct

func (s *SESSION) setState(state int) {
	s.mux.Lock()
	s.state = state
	s.mux.Unlock()
} // end func setState

func (s *SESSION) State() int {
	s.mux.RLock()
	state := s.state
	s.mux.RUnlock()
	return state
} // end func State

// filterClientLine is the client->backend transform. line arrives
// without its CRLF and whatever comes back is reframed by the pump.
// a nil return swallows the line.
//
// the USER line is held back: which username goes upstream is only
// known once the PASS arrives, so we answer the client's USER with a
// local 381 and send the whole pair in one burst on PASS. a known
// pair becomes the operator's credentials, an unknown pair goes
// upstream verbatim and the backend gets to accept or reject it.
func (s *SESSION) filterClientLine(line []byte) []byte {
	if s.authenticated || s.store == nil {
		return line
	}
	switch cmdTable.Match(line) {
	case "AUTHINFO USER":
		s.claimedUser = string(bytes.TrimSpace(line[len("AUTHINFO USER"):]))
		s.claimedLine = append([]byte(nil), line...)
		if cfg.opt.Debug {
			log.Printf("SESSION (%d) AUTHINFO USER claimed='%s' held back", s.sessId, s.claimedUser)
		}
		io.WriteString(s.client, "381 Password required"+CRLF)
		return nil

	case "AUTHINFO PASS":
		if s.claimedLine == nil {
			// out-of-sequence PASS, nothing held back, relay as-is
			return line
		}
		userLine := s.claimedLine
		s.claimedLine = nil
		// the upstream answers the burst's USER with its own 381, the
		// client already got ours
		s.mux.Lock()
		s.swallow381 = true
		s.mux.Unlock()
		pass := string(bytes.TrimSpace(line[len("AUTHINFO PASS"):]))
		if s.store.Validate(s.claimedUser, pass) {
			s.authenticated = true
			GCounter.incr("TOTAL_AuthSubst")
			if cfg.opt.Verbose {
				log.Printf("SESSION (%d) auth OK user='%s' client='%s'", s.sessId, s.claimedUser, s.client.RemoteAddr())
			}
			return []byte("AUTHINFO USER " + cfg.opt.BackUser + CRLF + "AUTHINFO PASS " + cfg.opt.BackPass)
		}
		GCounter.incr("TOTAL_AuthPassThru")
		if cfg.opt.Verbose {
			log.Printf("SESSION (%d) auth MISS user='%s' client='%s' passing through", s.sessId, s.claimedUser, s.client.RemoteAddr())
		}
		return append(append(userLine, CRLF...), line...)
	}
	return line
} // end func filterClientLine

// filterBackendLine is the backend->client transform: normalization
// plus swallowing the upstream's interim 381 after an auth burst.
func (s *SESSION) filterBackendLine(line []byte) []byte {
	s.mux.Lock()
	swallow := s.swallow381
	s.swallow381 = false
	s.mux.Unlock()
	if swallow {
		if code, ok := parseStatusCode(line); ok && code == 381 {
			return nil
		}
	}
	return NormalizeResponse(line)
} // end func filterBackendLine

// relayLines pumps src to dst line by line: split on LF, strip the
// EOL, transform, reframe with CRLF, write onward. a nil from the
// transform drops the line. a final fragment without terminator at
// stream end is forwarded as-is. returns nil on clean EOF.
func relayLines(dst io.Writer, src io.Reader, transform func([]byte) []byte, counterKey string) error {
	reader := bufio.NewReaderSize(src, DefaultBufferSize)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			terminated := line[len(line)-1] == '\n'
			if out := transform(trimEOL(line)); out != nil {
				if terminated {
					out = append(out, CRLF...)
				}
				if _, werr := dst.Write(out); werr != nil {
					return werr
				}
				GCounter.add(counterKey, uint64(len(out)))
				GCounter.incr(counterKey + "_lines")
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
} // end func relayLines

// run drives the session through its states. blocks until both pumps
// are down and all conns are closed.
func (s *SESSION) run() {
	defer s.proxy.endSession(s)

	s.setState(StateConnecting)
	backend, err := ConnectBackend(cfg.opt, s.proxy.stop_chan)
	if err != nil {
		log.Printf("ERROR SESSION (%d) client='%s' no backend: err='%v'", s.sessId, s.client.RemoteAddr(), err)
		if cfg.opt.Send400 {
			// best effort. the client gets hung up either way.
			io.WriteString(s.client, "400 Service temporarily unavailable"+CRLF)
		}
		s.client.Close()
		s.setState(StateClosed)
		GCounter.incr("TOTAL_ConnectFails")
		return
	}
	s.mux.Lock()
	s.backend = backend
	s.mux.Unlock()

	s.setState(StateRelaying)
	if cfg.opt.Verbose {
		log.Printf("SESSION (%d) relaying client='%s' <> backend='%s'", s.sessId, s.client.RemoteAddr(), backend.RemoteAddr())
	}

	var waitPumps sync.WaitGroup
	waitPumps.Add(2)

	go func() {
		defer waitPumps.Done()
		err := relayLines(backend, s.client, s.filterClientLine, "TMP_TXbytes")
		if err != nil && !isNetConnClosedErr(err) {
			log.Printf("WARN SESSION (%d) client->backend pump err='%v'", s.sessId, err)
		}
		// client is done sending: let the backend observe end-of-stream
		closeWrite(backend)
	}()

	go func() {
		defer waitPumps.Done()
		err := relayLines(s.client, backend, s.filterBackendLine, "TMP_RXbytes")
		if err != nil && !isNetConnClosedErr(err) {
			log.Printf("WARN SESSION (%d) backend->client pump err='%v'", s.sessId, err)
		}
		closeWrite(s.client)
	}()

	waitPumps.Wait()

	s.setState(StateClosing)
	s.client.Close()
	backend.Close()
	s.setState(StateClosed)
	if cfg.opt.Debug {
		log.Printf("SESSION (%d) closed client='%s'", s.sessId, s.client.RemoteAddr())
	}
} // end func run

type closeWriter interface {
	CloseWrite() error
}

// closeWrite half-closes the write side so the peer observes EOF.
// *net.TCPConn and *tls.Conn both support it, anything else (net.Pipe
// in tests) gets a full close.
func closeWrite(conn net.Conn) {
	if cw, ok := conn.(closeWriter); ok {
		cw.CloseWrite()
		return
	}
	conn.Close()
} // end func closeWrite

func trimEOL(line []byte) []byte {
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
	}
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line
} // end func trimEOL
