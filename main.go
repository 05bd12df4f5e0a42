package main

/*
 * nntp-proxy
 *
 * transparent NNTP relay: clients authenticate with their own
 * credentials (validated against a local htpasswd file) and the proxy
 * re-authenticates upstream with a fixed operator identity. all other
 * protocol traffic is relayed byte for byte.
 */

import (
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	prof "github.com/go-while/go-cpu-mem-profiler"
)

var (
	appName    = "nntp-proxy"
	appVersion = "-" // Github tag or built date
	Prof       *prof.Profiler
	cfg        = &Config{opt: &CFG{}}
	stop_chan  chan struct{}   // push a single 'struct{}{}' into this chan and all readers will re-push it and return itself to quit
	GCounter   *Counter_uint64 // a global counter

	version bool   // flag
	runProf bool   // flag
	webProf string // flag
	booted  time.Time
)

func init() {
	stop_chan = make(chan struct{}, 1)
	setupSigusr1Dump()
	GCounter = NewCounter()
	booted = time.Now()
} // end func init

func main() {
	booted = time.Now()
	ParseFlags()

	if cfg.opt.Debug {
		log.Printf("loadedConfig flag.Parse cfg.opt='%#v'", cfg.opt)
	}

	var store *HtpasswdStore
	if cfg.opt.HtpasswdFile != "" {
		loaded, err := LoadHtpasswd(cfg.opt.HtpasswdFile)
		if err != nil {
			log.Printf("ERROR LoadHtpasswd: err='%v'", err)
			os.Exit(1)
		}
		store = loaded
		log.Printf("Loaded %d users from '%s'", store.NumUsers(), cfg.opt.HtpasswdFile)
	} else {
		log.Printf("WARN no -htpasswd set: running in pass-through mode, no credential substitution!")
	}

	proxy, err := NewProxy(store)
	if err != nil {
		log.Printf("ERROR NewProxy: err='%v'", err)
		os.Exit(1)
	}

	var waitMeter sync.WaitGroup
	waitMeter.Add(1)
	go GoSpeedMeter(&waitMeter)

	go proxy.Run()

	// runs until interrupted
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	sig := <-sigs
	log.Printf("%s got signal '%v': shutting down (uptime %.0fs)", appName, sig, time.Since(booted).Seconds())

	stop_chan <- struct{}{}
	proxy.Shutdown()
	waitMeter.Wait()

	if runProf {
		log.Printf("Prof stop capturing cpu profile")
		Prof.StopCPUProfile()
	}
	log.Printf("%s done!", appName)
} // end func main
