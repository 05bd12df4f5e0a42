package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
)

func joinHostPort(host string, port int) string {
	if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
		// bare ipv6 literal
		return fmt.Sprintf("[%s]:%d", host, port)
	}
	return fmt.Sprintf("%s:%d", host, port)
} // end func joinHostPort

// env fallbacks for flag defaults: cmdline still wins over env.

func getEnvStr(key string, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
} // end func getEnvStr

func getEnvBool(key string, fallback bool) bool {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		log.Printf("WARN getEnvBool %s='%s' not a bool, using default %t", key, val, fallback)
		return fallback
	}
	return parsed
} // end func getEnvBool

func getEnvInt(key string, fallback int) int {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		log.Printf("WARN getEnvInt %s='%s' not a number, using default %d", key, val, fallback)
		return fallback
	}
	return parsed
} // end func getEnvInt

func getEnvInt64(key string, fallback int64) int64 {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		log.Printf("WARN getEnvInt64 %s='%s' not a number, using default %d", key, val, fallback)
		return fallback
	}
	return parsed
} // end func getEnvInt64

func FileExists(File_path string) bool {
	info, err := os.Stat(File_path)
	if err != nil {
		if os.IsNotExist(err) {
			return false
		}
		log.Printf("ERROR FileExists err='%v'", err)
		return false
	}
	return !info.IsDir()
} // end func FileExists

// cosmetics
func yesno(input bool) string {
	switch input {
	case true:
		return "+++"
	case false:
		return "---"
	}
	return "?"
} // end func yesno
