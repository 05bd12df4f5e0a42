//go:build windows

package main

import "fmt"

// Windows does not support SIGUSR1 signal as linux does
// so there is no goroutine dump trigger here.
// use the '-prof and/or -profweb' cmdline flags
// to analyze CPU and memory profiles on Windows.

func setupSigusr1Dump() {
	if runProf || webProf != "" {
		fmt.Println("Pprof CPU/MEM profiling is enabled.")
		fmt.Printf("If started with -profweb open your browser to %s to view the profile in a web browser.\n", webProf)
	} else {
		fmt.Println("SIGUSR1 signal is not supported on Windows. Use -prof and/or -profweb cmdline flags to analyze CPU and memory profiles.")
	}
}
