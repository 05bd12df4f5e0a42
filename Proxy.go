package main

import (
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/fatih/color"
)

// PROXY owns the listen socket and the map of running sessions.
// every accepted client connection gets its own SESSION goroutine,
// failures in one session never touch the listener or other sessions.
type PROXY struct {
	mux       sync.RWMutex
	listener  net.Listener
	store     *HtpasswdStore
	sessIds   uint64              // counts up
	sessMap   map[uint64]*SESSION // running sessions
	stop_chan chan struct{}
} // end type PROXY struct

// NewProxy binds the listen socket (plain tcp or tls). failing to
// bind is the only fatal startup error of the whole process.
func NewProxy(store *HtpasswdStore) (*PROXY, error) {
	var listener net.Listener
	var err error

	switch cfg.opt.ListenSSL {
	case false:
		listener, err = net.Listen(cfg.opt.TCPMode, cfg.opt.ListenAddr)

	case true:
		cert, cerr := tls.LoadX509KeyPair(cfg.opt.CertFile, cfg.opt.KeyFile)
		if cerr != nil {
			return nil, fmt.Errorf("error NewProxy LoadX509KeyPair cert='%s' key='%s' err='%v'", cfg.opt.CertFile, cfg.opt.KeyFile, cerr)
		}
		conf := &tls.Config{Certificates: []tls.Certificate{cert}}
		listener, err = tls.Listen(cfg.opt.TCPMode, cfg.opt.ListenAddr, conf)
	} // end switch

	if err != nil {
		return nil, fmt.Errorf("error NewProxy Listen '%s' err='%v'", cfg.opt.ListenAddr, err)
	}

	p := &PROXY{
		listener:  listener,
		store:     store,
		sessMap:   make(map[uint64]*SESSION, 128),
		stop_chan: stop_chan,
	}
	log.Printf("%s [%s] listening on '%s' ssl=%s backend='%s' ssl=%s auth=%s", appName, appVersion,
		listener.Addr(), yesno(cfg.opt.ListenSSL), cfg.opt.backendAddr(), yesno(cfg.opt.BackSSL), yesno(store != nil))
	return p, nil
} // end func NewProxy

// Run accepts client connections until the listener is closed.
func (p *PROXY) Run() {
	for {
		conn, err := p.listener.Accept()
		if err != nil {
			select {
			case quit := <-p.stop_chan:
				p.stop_chan <- quit
				log.Printf("PROXY accept loop quit")
				return
			default:
			}
			if isNetConnClosedErr(err) {
				log.Printf("PROXY listener closed err='%v'", err)
				return
			}
			log.Printf("ERROR PROXY Accept err='%v'", err)
			continue
		}
		sess := p.newSession(conn)
		if cfg.opt.Verbose {
			log.Printf("SESSION (%d) accepted client='%s'", sess.sessId, conn.RemoteAddr())
		}
		go sess.run()
	}
} // end func Run

func (p *PROXY) newSession(conn net.Conn) *SESSION {
	p.mux.Lock()
	p.sessIds++
	sess := &SESSION{
		proxy:  p,
		sessId: p.sessIds,
		client: conn,
		store:  p.store,
		// no credential store means substitution is off and the
		// session counts as authenticated from the first byte
		authenticated: p.store == nil,
	}
	p.sessMap[sess.sessId] = sess
	p.mux.Unlock()
	GCounter.incr("activeSessions")
	GCounter.incr("TOTAL_Sessions")
	return sess
} // end func newSession

func (p *PROXY) endSession(s *SESSION) {
	p.mux.Lock()
	delete(p.sessMap, s.sessId)
	p.mux.Unlock()
	GCounter.decr("activeSessions")
} // end func endSession

// Shutdown closes the listener and best-effort kills all running
// sessions by closing both legs. pumps error out and clean up.
func (p *PROXY) Shutdown() {
	p.listener.Close()
	p.mux.RLock()
	sessions := make([]*SESSION, 0, len(p.sessMap))
	for _, s := range p.sessMap {
		sessions = append(sessions, s)
	}
	p.mux.RUnlock()
	for _, s := range sessions {
		s.mux.RLock()
		client, backend := s.client, s.backend
		s.mux.RUnlock()
		if client != nil {
			client.Close()
		}
		if backend != nil {
			backend.Close()
		}
	}
	log.Printf("PROXY shutdown: closed %d sessions", len(sessions))
} // end func Shutdown

func (p *PROXY) NumSessions() int {
	p.mux.RLock()
	defer p.mux.RUnlock()
	return len(p.sessMap)
} // end func NumSessions

// GoSpeedMeter prints relay stats every PrintStats seconds.
func GoSpeedMeter(waitMeter *sync.WaitGroup) {
	defer waitMeter.Done()
	if cfg.opt.PrintStats < 0 {
		// set to -1 to disable
		return
	}
	PrintStats := cfg.opt.PrintStats
	if PrintStats < 5 {
		PrintStats = 5 // min 5sec
	}
	cron := time.After(time.Duration(PrintStats) * time.Second)
forever:
	for {
		select {
		case quit := <-stop_chan:
			stop_chan <- quit
			break forever

		case <-cron:
			tmp_rxb, tmp_txb := GCounter.getReset("TMP_RXbytes"), GCounter.getReset("TMP_TXbytes")
			active, total := GCounter.get("activeSessions"), GCounter.get("TOTAL_Sessions")
			if cfg.opt.Verbose {
				log.Printf(" | %s | sessions %d (total %d) | %s %d KiB | %s %d KiB",
					color.HiWhiteString("RELAY"), active, total,
					color.HiGreenString("RX"), tmp_rxb/1024,
					color.HiYellowString("TX"), tmp_txb/1024)
			}
			cron = time.After(time.Second * time.Duration(PrintStats))
		}
	} // end for
	if cfg.opt.Debug {
		log.Print("GoSpeedMeter quit")
	}
} // end func GoSpeedMeter
