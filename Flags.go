package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	prof "github.com/go-while/go-cpu-mem-profiler"
)

// every flag has an environment fallback so the proxy runs from a unit
// file or container without a wrapper script. cmdline beats env.
func ParseFlags() {
	flag.BoolVar(&version, "version", false, "prints app version")
	// listen side
	flag.StringVar(&cfg.opt.ListenAddr, "listen", getEnvStr("NNTPPROXY_LISTEN", DefaultListenAddr), "listen address 'host:port' (':119' binds all interfaces)")
	flag.BoolVar(&cfg.opt.ListenSSL, "listenssl", getEnvBool("NNTPPROXY_LISTEN_SSL", false), "[true|false] serve TLS on the listen side (needs -cert and -key)")
	flag.StringVar(&cfg.opt.CertFile, "cert", getEnvStr("NNTPPROXY_CERT", ""), "/path/to/tls.crt for -listenssl")
	flag.StringVar(&cfg.opt.KeyFile, "key", getEnvStr("NNTPPROXY_KEY", ""), "/path/to/tls.key for -listenssl")
	flag.StringVar(&cfg.opt.TCPMode, "tcpmode", getEnvStr("NNTPPROXY_TCPMODE", "tcp"), "[tcp|tcp4|tcp6]")
	// backend side
	flag.StringVar(&cfg.opt.BackHost, "backhost", getEnvStr("NNTPPROXY_BACKEND_HOST", ""), "backend news server hostname")
	flag.IntVar(&cfg.opt.BackPort, "backport", getEnvInt("NNTPPROXY_BACKEND_PORT", DefaultBackendPort), "backend news server port")
	flag.BoolVar(&cfg.opt.BackSSL, "backssl", getEnvBool("NNTPPROXY_BACKEND_SSL", false), "[true|false] connect to the backend via TLS")
	flag.BoolVar(&cfg.opt.SkipSslCheck, "backskipsslcheck", getEnvBool("NNTPPROXY_BACKEND_SKIP_SSL_CHECK", false), "[true|false] don't verify the backend TLS certificate")
	flag.StringVar(&cfg.opt.BackSocks, "backsocks", getEnvStr("NNTPPROXY_BACKEND_SOCKS", ""), "dial the backend through this socks5 proxy 'host:port' (default: empty = direct)")
	flag.StringVar(&cfg.opt.BackUser, "backuser", getEnvStr("NNTPPROXY_BACKEND_USER", ""), "username the proxy authenticates with upstream")
	flag.StringVar(&cfg.opt.BackPass, "backpass", getEnvStr("NNTPPROXY_BACKEND_PASS", ""), "password the proxy authenticates with upstream")
	// client auth
	flag.StringVar(&cfg.opt.HtpasswdFile, "htpasswd", getEnvStr("NNTPPROXY_HTPASSWD", ""), "/path/to/htpasswd with client credentials. empty disables substitution (pass-through mode)")
	flag.BoolVar(&cfg.opt.Send400, "send400", getEnvBool("NNTPPROXY_SEND400", true), "[true|false] send '400 Service temporarily unavailable' to the client when the backend connect gives up")
	// debug output flags
	flag.BoolVar(&runProf, "prof", false, "starts profiler (for debugging)")
	flag.StringVar(&webProf, "profweb", "", "start profiling webserver at: '[::]:61234' or '127.0.0.1:61234' (default: empty = dont start websrv)")
	flag.Int64Var(&cfg.opt.PrintStats, "printstats", getEnvInt64("NNTPPROXY_PRINTSTATS", DefaultPrintStats), "prints relay stats every N seconds. -1 disables output")
	flag.BoolVar(&cfg.opt.Verbose, "verbose", getEnvBool("NNTPPROXY_VERBOSE", true), "[true|false] a little more output than nothing")
	flag.BoolVar(&cfg.opt.Discard, "discard", getEnvBool("NNTPPROXY_DISCARD", false), "[true|false] reduce console output to minimum")
	flag.BoolVar(&cfg.opt.Debug, "debug", getEnvBool("NNTPPROXY_DEBUG", false), "[true|false] (default: false)")
	flag.Parse()

	if version {
		fmt.Printf("%s version: [%s]\n", appName, appVersion)
		os.Exit(0)
	}
	if runProf || webProf != "" {
		Prof = prof.NewProf()
		RunProf()
	}

	switch cfg.opt.TCPMode {
	case "tcp", "tcp4", "tcp6":
		// pass
	default:
		cfg.opt.TCPMode = "tcp"
	}

	if cfg.opt.BackHost == "" {
		log.Printf("ERROR: -backhost is required!")
		os.Exit(1)
	}
	if cfg.opt.ListenSSL && (cfg.opt.CertFile == "" || cfg.opt.KeyFile == "") {
		log.Printf("ERROR: -listenssl needs -cert and -key!")
		os.Exit(1)
	}
	if cfg.opt.HtpasswdFile != "" && !cfg.opt.wantsAuth() {
		log.Printf("ERROR: -htpasswd needs -backuser and -backpass to substitute!")
		os.Exit(1)
	}
	if cfg.opt.HtpasswdFile != "" && !FileExists(cfg.opt.HtpasswdFile) {
		log.Printf("ERROR: htpasswd file not found: '%s'", cfg.opt.HtpasswdFile)
		os.Exit(1)
	}

	// setup debug modes
	if cfg.opt.Debug {
		if !cfg.opt.Verbose {
			cfg.opt.Verbose = true
		}
	} else {
		if cfg.opt.Discard {
			log.SetOutput(io.Discard)
		}
	} // end debugs

	if cfg.opt.Verbose {
		log.Printf("Settings: '%#v'", *cfg.opt)
	}
} // end func ParseFlags

func RunProf() {
	if webProf != "" {
		go Prof.PprofWeb(webProf)
	}
	if runProf {
		if _, err := Prof.StartCPUProfile(); err != nil {
			log.Printf("ERROR RunProf StartCPUProfile err='%v'", err)
		}
	}
} // end func RunProf
