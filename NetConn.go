package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net"
	"syscall"
	"time"

	"golang.org/x/net/proxy"
)

/*
 * establishes the backend leg of a session.
 * there is no pooling here: a relay ties one backend connection to one
 * client connection for the whole session, so all we do is dial with a
 * bounded backoff and hand the conn to the pumps.
 */

// backoffDelay computes the sleep before the given attempt (0-based):
// min(base * multi^attempt, cap) plus up to 50% randomized jitter so
// many failing sessions don't hammer the backend in lockstep.
func backoffDelay(attempt int) time.Duration {
	delay := DefaultConnectBackoffBase
	for i := 0; i < attempt; i++ {
		delay *= DefaultConnectBackoffMulti
		if delay >= DefaultConnectBackoffCap {
			delay = DefaultConnectBackoffCap
			break
		}
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/2 + 1))
	return delay + jitter
} // end func backoffDelay

// dialBackend opens the upstream connection: direct or through a
// socks5 proxy, plain or TLS. one attempt, no retry here.
func dialBackend(cfg *CFG) (net.Conn, error) {
	rserver := cfg.backendAddr()

	if cfg.BackSocks != "" {
		dialer, err := proxy.SOCKS5("tcp", cfg.BackSocks, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("error dialBackend socks5 setup '%s' err='%v'", cfg.BackSocks, err)
		}
		conn, err := dialer.Dial(cfg.TCPMode, rserver)
		if err != nil {
			return nil, err
		}
		if cfg.BackSSL {
			tlsconn := tls.Client(conn, &tls.Config{
				InsecureSkipVerify: cfg.SkipSslCheck,
				ServerName:         cfg.BackHost,
			})
			if err := tlsconn.Handshake(); err != nil {
				conn.Close()
				return nil, err
			}
			return tlsconn, nil
		}
		return conn, nil
	}

	switch cfg.BackSSL {
	case false:
		d := net.Dialer{Timeout: DefaultConnectTimeout}
		return d.Dial(cfg.TCPMode, rserver)

	case true:
		conf := &tls.Config{
			InsecureSkipVerify: cfg.SkipSslCheck,
		}
		ctx, cancel := context.WithTimeout(context.Background(), DefaultConnectTimeout)
		defer cancel()
		d := tls.Dialer{
			Config: conf,
		}
		return d.DialContext(ctx, cfg.TCPMode, rserver)
	} // end switch

	return nil, fmt.Errorf("error dialBackend uncatched return")
} // end func dialBackend

// ConnectBackend dials the backend with up to DefaultConnectAttempts
// attempts and exponential backoff between them. exhausting the
// attempts is fatal for the calling session only.
func ConnectBackend(cfg *CFG, stop chan struct{}) (net.Conn, error) {
	var lastErr error
	for attempt := 0; attempt < DefaultConnectAttempts; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt - 1)
			if cfg.Debug {
				log.Printf("ConnectBackend retry %d/%d '%s' in '%v'", attempt+1, DefaultConnectAttempts, cfg.backendAddr(), delay)
			}
			select {
			case quit := <-stop:
				stop <- quit
				return nil, fmt.Errorf("error ConnectBackend aborted by shutdown")
			case <-time.After(delay):
			}
		}
		start := time.Now()
		conn, err := dialBackend(cfg)
		if err == nil && conn != nil {
			if cfg.Debug {
				log.Printf("ConnectBackend OK '%s' wants_ssl=%t took='%v'", cfg.backendAddr(), cfg.BackSSL, time.Since(start))
			}
			return conn, nil
		}
		if conn != nil {
			conn.Close()
		}
		lastErr = err
		// every dial error gets the same treatment, unreachable routes
		// included: the backoff envelope decides when we give up
		log.Printf("ERROR ConnectBackend Dial rserver=%s wants_ssl=%t attempt=%d/%d err='%v'", cfg.backendAddr(), cfg.BackSSL, attempt+1, DefaultConnectAttempts, err)
	}
	return nil, fmt.Errorf("error ConnectBackend gave up after %d attempts '%s' err='%v'", DefaultConnectAttempts, cfg.backendAddr(), lastErr)
} // end func ConnectBackend

func isNetConnClosedErr(err error) bool {
	switch {
	case
		errors.Is(err, net.ErrClosed),
		errors.Is(err, io.EOF),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, syscall.ECONNRESET):
		return true
	default:
		return false
	}
} // end func isNetConnClosedErr
