package main

import (
	"sort"
)

/*
 * the command table is built once on boot and never mutated again:
 * both pumps of every session read it without locks.
 * matching is a case-insensitive byte prefix compare so we never have
 * to decode the line: NNTP is 8-bit safe and article payload is not
 * guaranteed to be valid text.
 */

// recognized command vocabulary. sub-forms must be listed here too:
// the matcher sorts by length so "LIST ACTIVE.TIMES" always wins
// over plain "LIST" and "LISTGROUP" over "LIST".
var nntpCommands = []string{
	"ARTICLE",
	"AUTHINFO USER",
	"AUTHINFO PASS",
	"BODY",
	"CAPABILITIES",
	"DATE",
	"GROUP",
	"HDR",
	"HEAD",
	"HELP",
	"IHAVE",
	"LAST",
	"LIST ACTIVE.TIMES",
	"LIST ACTIVE",
	"LIST DISTRIB.PATS",
	"LIST HEADERS",
	"LIST NEWSGROUPS",
	"LIST OVERVIEW.FMT",
	"LIST",
	"LISTGROUP",
	"MODE READER",
	"NEWGROUPS",
	"NEWNEWS",
	"NEXT",
	"OVER",
	"POST",
	"QUIT",
	"STAT",
	"SLAVE",
}

// CommandTable holds the vocabulary ordered longest-first so the
// first prefix hit is always the most specific one.
type CommandTable struct {
	entries []string
}

var cmdTable = NewCommandTable(nntpCommands)

func NewCommandTable(commands []string) *CommandTable {
	t := &CommandTable{entries: make([]string, len(commands))}
	copy(t.entries, commands)
	sort.SliceStable(t.entries, func(i, j int) bool {
		return len(t.entries[i]) > len(t.entries[j])
	})
	return t
} // end func NewCommandTable

// Match returns the canonical uppercase command the line starts with,
// or "" if the prefix matches nothing in the vocabulary.
func (t *CommandTable) Match(line []byte) string {
	for _, cmd := range t.entries {
		if hasPrefixFold(line, cmd) {
			return cmd
		}
	}
	return ""
} // end func Match

// hasPrefixFold reports whether line starts with prefix, ignoring
// ASCII case on the line side. prefix is expected uppercase.
func hasPrefixFold(line []byte, prefix string) bool {
	if len(line) < len(prefix) {
		return false
	}
	for i := 0; i < len(prefix); i++ {
		b := line[i]
		if b >= 'a' && b <= 'z' {
			b -= 'a' - 'A'
		}
		if b != prefix[i] {
			return false
		}
	}
	return true
} // end func hasPrefixFold
