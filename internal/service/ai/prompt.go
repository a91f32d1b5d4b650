package ai

import (
	"fmt"
	"strings"

	"github.com/mirageworld/mirage/backend/internal/model/chat"
	"github.com/mirageworld/mirage/backend/internal/model/persona"
)

// historyWindow is how many recent log entries feed each generation call.
const historyWindow = 15

// buildChannelSystemPrompt assembles the persona-world framing for a channel
// generation call.
func buildChannelSystemPrompt(ch chat.Channel, speaker persona.Persona, humanNick, hint string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are simulating an IRC channel called %s.\n", ch.Name)
	if ch.Topic != "" {
		fmt.Fprintf(&b, "Channel topic: %s\n", ch.Topic)
	}
	if ch.DominantLanguage != "" {
		fmt.Fprintf(&b, "The channel mostly speaks %s.\n", ch.DominantLanguage)
	}

	b.WriteString("\nChannel members:\n")
	for _, u := range ch.Users {
		if u.Nickname == humanNick {
			fmt.Fprintf(&b, "- %s (the human user)\n", u.Nickname)
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", u.Nickname, describePersona(u))
	}

	fmt.Fprintf(&b, "\nSpeak as %s and nobody else. %s\n", speaker.Nickname, describeVoice(speaker))
	if hint != "" {
		fmt.Fprintf(&b, "\n%s\n", hint)
	}
	b.WriteString("\nRespond with exactly one IRC line in the form \"nickname: message\". No narration, no quotes, no extra lines.")
	return b.String()
}

// buildPrivateSystemPrompt frames a one-to-one reply in character.
func buildPrivateSystemPrompt(p persona.Persona, humanNick string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s in a private IRC conversation with %s.\n", p.Nickname, humanNick)
	fmt.Fprintf(&b, "%s: %s\n", p.Nickname, describePersona(p))
	fmt.Fprintf(&b, "Stay in character. %s\n", describeVoice(p))
	b.WriteString("\nRespond with exactly one line in the form \"nickname: message\".")
	return b.String()
}

// buildGreetingSystemPrompt asks for short hello lines from freshly joined
// personas; the response may legitimately contain several lines.
func buildGreetingSystemPrompt(ch chat.Channel, joined []persona.Persona, humanNick string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "These users just joined the IRC channel %s:\n", ch.Name)
	for _, p := range joined {
		fmt.Fprintf(&b, "- %s: %s\n", p.Nickname, describePersona(p))
	}
	if ch.Topic != "" {
		fmt.Fprintf(&b, "\nChannel topic: %s\n", ch.Topic)
	}
	fmt.Fprintf(&b, "\nWrite one short greeting line per joiner, each in the form \"nickname: message\". Greetings should fit each persona's voice; the human user here is %s.", humanNick)
	return b.String()
}

// describePersona flattens personality, style, and language skills into one
// roster line.
func describePersona(p persona.Persona) string {
	parts := []string{p.Personality}
	if style := describeStyle(p.WritingStyle); style != "" {
		parts = append(parts, style)
	}
	if skills := describeSkills(p.LanguageSkills); skills != "" {
		parts = append(parts, skills)
	}
	if p.Status == persona.StatusAway {
		parts = append(parts, "currently marked away")
	}
	return strings.Join(parts, " | ")
}

func describeVoice(p persona.Persona) string {
	var hints []string
	if style := describeStyle(p.WritingStyle); style != "" {
		hints = append(hints, "Writing style: "+style+".")
	}
	primary := p.LanguageSkills.Primary()
	if primary.Fluency != persona.FluencyNative {
		hints = append(hints, fmt.Sprintf("You write %s at a %s level; imperfections are in character.", primary.Language, primary.Fluency))
	}
	if primary.Accent != "" {
		hints = append(hints, fmt.Sprintf("A %s accent colors your phrasing.", primary.Accent))
	}
	return strings.Join(hints, " ")
}

func describeStyle(ws persona.WritingStyle) string {
	var parts []string
	if ws.Formality != "" {
		parts = append(parts, ws.Formality)
	}
	if ws.Verbosity != "" {
		parts = append(parts, ws.Verbosity)
	}
	if ws.Humor != "" {
		parts = append(parts, ws.Humor+" humor")
	}
	if ws.EmojiUsage != "" {
		parts = append(parts, "emoji: "+ws.EmojiUsage)
	}
	if ws.Punctuation != "" {
		parts = append(parts, "punctuation: "+ws.Punctuation)
	}
	return strings.Join(parts, ", ")
}

func describeSkills(skills persona.SkillList) string {
	if len(skills) == 0 {
		return ""
	}
	var parts []string
	for _, s := range skills {
		desc := fmt.Sprintf("%s (%s", s.Language, s.Fluency)
		if s.Accent != "" {
			desc += ", " + s.Accent + " accent"
		}
		parts = append(parts, desc+")")
	}
	return "speaks " + strings.Join(parts, ", ")
}

// formatHistory renders the most recent log entries the way they would read
// on screen.
func formatHistory(messages []chat.Message, limit int) string {
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	var b strings.Builder
	for _, m := range messages {
		switch {
		case m.IsAction():
			fmt.Fprintf(&b, "* %s %s\n", m.Nickname, m.Content)
		case m.Type == chat.TypeSystem || m.Type == chat.TypeNotice:
			fmt.Fprintf(&b, "-- %s\n", m.Content)
		default:
			fmt.Fprintf(&b, "%s: %s\n", m.Nickname, m.Content)
		}
	}
	return b.String()
}

// describeTrigger frames the message being reacted to. Action messages read
// differently from plain ones.
func describeTrigger(m chat.Message) string {
	if m.IsAction() {
		return fmt.Sprintf("%s performed an action: *%s %s*", m.Nickname, m.Nickname, m.Content)
	}
	return fmt.Sprintf("%s said: %s", m.Nickname, m.Content)
}
