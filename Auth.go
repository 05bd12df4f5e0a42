package main

import (
	"bufio"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HtpasswdStore validates client credentials against an htpasswd-style
// file: one "user:hash" per line, '#' comments and blank lines ignored.
// supported hash formats: bcrypt ($2a$/$2b$/$2y$), SHA1 ({SHA}b64) and
// plaintext. loaded once on boot, read-only afterwards, so every
// session may call Validate concurrently without locks.
type HtpasswdStore struct {
	users map[string]string // user -> hash
}

func LoadHtpasswd(path string) (*HtpasswdStore, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error LoadHtpasswd open '%s' err='%v'", path, err)
	}
	defer file.Close()

	store := &HtpasswdStore{users: make(map[string]string, 16)}
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		user, hash, found := strings.Cut(line, ":")
		if !found || user == "" {
			return nil, fmt.Errorf("error LoadHtpasswd bad entry '%s' line=%d", path, lineNum)
		}
		if _, dupe := store.users[user]; dupe {
			return nil, fmt.Errorf("error LoadHtpasswd duplicate user '%s' in '%s' line=%d", user, path, lineNum)
		}
		store.users[user] = hash
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error LoadHtpasswd read '%s' err='%v'", path, err)
	}
	if len(store.users) == 0 {
		log.Printf("WARN LoadHtpasswd '%s' holds no users: all clients will fall through to the backend", path)
	}
	return store, nil
} // end func LoadHtpasswd

// Validate reports whether (user, pass) matches a stored entry.
// a failed lookup is not an error: the caller falls back to relaying
// the client's own credentials upstream.
func (h *HtpasswdStore) Validate(user string, pass string) bool {
	hash, ok := h.users[user]
	if !ok {
		return false
	}
	switch {
	case strings.HasPrefix(hash, "$2a$"), strings.HasPrefix(hash, "$2b$"), strings.HasPrefix(hash, "$2y$"):
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass)) == nil
	case strings.HasPrefix(hash, "{SHA}"):
		sum := sha1.Sum([]byte(pass))
		want := base64.StdEncoding.EncodeToString(sum[:])
		return subtle.ConstantTimeCompare([]byte(hash[len("{SHA}"):]), []byte(want)) == 1
	default:
		// plaintext entry
		return subtle.ConstantTimeCompare([]byte(hash), []byte(pass)) == 1
	}
} // end func Validate

func (h *HtpasswdStore) NumUsers() int {
	return len(h.users)
} // end func NumUsers
