package main

import (
	"time"
)

const (
	DOT  = "."
	CR   = "\r"
	LF   = "\n"
	CRLF = CR + LF

	DefaultListenAddr           = ":119"
	DefaultBackendPort          = 119
	DefaultBackendSSLPort       = 563
	DefaultPrintStats     int64 = 30
	DefaultConnectTimeout       = 15 * time.Second
	DefaultBufferSize           = 256 * 1024

	// backoff envelope for backend connects
	DefaultConnectAttempts     = 5
	DefaultConnectBackoffBase  = 100 * time.Millisecond
	DefaultConnectBackoffMulti = 2
	DefaultConnectBackoffCap   = 60 * time.Second
)

type (
	Config struct {
		opt *CFG
	}

	//
	CFG struct {
		ListenAddr   string // "host:port" or ":119" for all interfaces
		ListenSSL    bool
		CertFile     string
		KeyFile      string
		TCPMode      string // tcp|tcp4|tcp6
		BackHost     string
		BackPort     int
		BackSSL      bool
		SkipSslCheck bool
		BackSocks    string // "host:port" of a socks5 proxy. empty = direct dial
		BackUser     string
		BackPass     string
		HtpasswdFile string
		Send400      bool // tell the client "400" before hangup if backend is gone
		PrintStats   int64
		Discard      bool
		Debug        bool
		Verbose      bool
	} // end CFG struct
) // end type

func (c *CFG) backendAddr() string {
	port := c.BackPort
	if port <= 0 {
		if c.BackSSL {
			port = DefaultBackendSSLPort
		} else {
			port = DefaultBackendPort
		}
	}
	return joinHostPort(c.BackHost, port)
} // end func backendAddr

// substitution is only armed when the operator supplied both a
// credential store and a backend identity to swap in
func (c *CFG) wantsAuth() bool {
	return c.HtpasswdFile != "" && c.BackUser != "" && c.BackPass != ""
} // end func wantsAuth
