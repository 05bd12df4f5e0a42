package main

/*
 * normalizes backend status lines on their way to the client.
 * only codes whose RFC 3977/4643 text carries no arguments are in the
 * table: lines like "211 1234 3000234 3002322 misc.test" transport
 * numbers the client needs, rewriting those would break the session.
 */

// ResponseCodeTable maps a 3-digit status code to its canonical text.
// built once on boot, read-only afterwards.
var responseCodeTable = map[int]string{
	200: "Service available, posting allowed",
	201: "Service available, posting prohibited",
	205: "Connection closing",
	281: "Authentication accepted",
	381: "Password required",
	400: "Service temporarily unavailable",
	411: "No such newsgroup",
	412: "No newsgroup selected",
	420: "Current article number is invalid",
	421: "No next article in this group",
	422: "No previous article in this group",
	423: "No article with that number",
	430: "No such article",
	435: "Article not wanted",
	436: "Transfer not possible; try again later",
	437: "Transfer rejected; do not retry",
	440: "Posting not permitted",
	441: "Posting failed",
	480: "Authentication required",
	481: "Authentication failed",
	482: "Authentication commands issued out of sequence",
	500: "Unknown command",
	501: "Syntax error",
	502: "Permission denied",
	503: "Feature not supported",
}

// NormalizeResponse rewrites a status line to "<code> <canonical text>"
// if its first three bytes decode to a known code. anything else
// (unknown codes, article payload, dot-stuffed body lines) passes
// through untouched. stateless: never looks at surrounding lines.
func NormalizeResponse(line []byte) []byte {
	code, ok := parseStatusCode(line)
	if !ok {
		return line
	}
	text, known := responseCodeTable[code]
	if !known {
		return line
	}
	out := make([]byte, 0, 4+len(text))
	out = append(out, line[:3]...)
	out = append(out, ' ')
	out = append(out, text...)
	return out
} // end func NormalizeResponse

func parseStatusCode(line []byte) (int, bool) {
	if len(line) < 3 {
		return 0, false
	}
	code := 0
	for i := 0; i < 3; i++ {
		b := line[i]
		if b < '0' || b > '9' {
			return 0, false
		}
		code = code*10 + int(b-'0')
	}
	return code, true
} // end func parseStatusCode
