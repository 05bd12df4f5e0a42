package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandTableMatch(t *testing.T) {
	cases := []struct {
		line string
		want string
	}{
		{"ARTICLE <abc@def>", "ARTICLE"},
		{"article 123", "ARTICLE"},
		{"AUTHINFO USER alice", "AUTHINFO USER"},
		{"authinfo pass secret", "AUTHINFO PASS"},
		{"BODY <abc@def>", "BODY"},
		{"CAPABILITIES", "CAPABILITIES"},
		{"DATE", "DATE"},
		{"GROUP misc.test", "GROUP"},
		{"HDR Subject 1-10", "HDR"},
		{"HEAD 53", "HEAD"},
		{"IHAVE <abc@def>", "IHAVE"},
		{"LIST", "LIST"},
		{"LIST ACTIVE alt.*", "LIST ACTIVE"},
		{"LIST ACTIVE.TIMES alt.*", "LIST ACTIVE.TIMES"},
		{"list active.times", "LIST ACTIVE.TIMES"},
		{"LIST NEWSGROUPS", "LIST NEWSGROUPS"},
		{"LIST OVERVIEW.FMT", "LIST OVERVIEW.FMT"},
		{"LISTGROUP misc.test", "LISTGROUP"},
		{"MODE READER", "MODE READER"},
		{"mode reader", "MODE READER"},
		{"NEWGROUPS 20240101 000000", "NEWGROUPS"},
		{"NEWNEWS * 20240101 000000", "NEWNEWS"},
		{"NEXT", "NEXT"},
		{"OVER 1-10", "OVER"},
		{"POST", "POST"},
		{"QUIT", "QUIT"},
		{"STAT <abc@def>", "STAT"},
		{"SLAVE", "SLAVE"},
		{"XOVER 1-10", ""},
		{"TAKETHIS <abc@def>", ""},
		{"", ""},
		{"AUTH", ""},
	}
	for _, tc := range cases {
		got := cmdTable.Match([]byte(tc.line))
		assert.Equal(t, tc.want, got, "line=%q", tc.line)
	}
}

func TestCommandTableLongestMatchWins(t *testing.T) {
	// sub-forms must never be reported as their shorter prefix
	assert.Equal(t, "LIST ACTIVE.TIMES", cmdTable.Match([]byte("LIST ACTIVE.TIMES")))
	assert.Equal(t, "LIST ACTIVE", cmdTable.Match([]byte("LIST ACTIVE")))
	assert.Equal(t, "LISTGROUP", cmdTable.Match([]byte("LISTGROUP")))
	assert.Equal(t, "LIST", cmdTable.Match([]byte("LIST DISTRIBUTIONS")))
}

func TestCommandTableOrderIsDeterministic(t *testing.T) {
	// building the table twice from the same vocabulary must yield the
	// same match for every ambiguous prefix
	other := NewCommandTable(nntpCommands)
	for _, line := range []string{"LIST ACTIVE.TIMES x", "LISTGROUP y", "AUTHINFO USER z"} {
		assert.Equal(t, cmdTable.Match([]byte(line)), other.Match([]byte(line)))
	}
}
