package ai

import "strings"

// Utterance is one parsed "nickname: message" line from a generation
// response.
type Utterance struct {
	Nickname string
	Content  string
}

// ParseUtterances splits a possibly multi-line response on the
// "nickname: message" convention. Lines without a colon, or where either
// side trims to empty, are discarded silently; a malformed response yields
// zero utterances rather than an error.
func ParseUtterances(raw string) []Utterance {
	var out []Utterance
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, ":") {
			continue
		}
		nick, content, _ := strings.Cut(line, ":")
		nick = strings.TrimSpace(nick)
		content = strings.TrimSpace(content)
		if nick == "" || content == "" {
			continue
		}
		out = append(out, Utterance{Nickname: nick, Content: content})
	}
	return out
}

// ParseSingle returns the first well-formed utterance, if any.
func ParseSingle(raw string) (Utterance, bool) {
	parsed := ParseUtterances(raw)
	if len(parsed) == 0 {
		return Utterance{}, false
	}
	return parsed[0], true
}
