package persona

// Status mirrors IRC presence.
type Status string

const (
	StatusOnline Status = "online"
	StatusAway   Status = "away"
)

// WritingStyle captures how a persona phrases its messages. All fields are
// free-form descriptors fed into generation prompts.
type WritingStyle struct {
	Formality   string `json:"formality"`
	Verbosity   string `json:"verbosity"`
	Humor       string `json:"humor"`
	EmojiUsage  string `json:"emojiUsage"`
	Punctuation string `json:"punctuation"`
}

// Persona is a simulated chat participant. Nickname is the unique key; the
// world store owns the canonical list and channels hold member copies by
// nickname.
type Persona struct {
	Nickname         string       `json:"nickname"`
	Status           Status       `json:"status"`
	Personality      string       `json:"personality"`
	LanguageSkills   SkillList    `json:"languageSkills"`
	WritingStyle     WritingStyle `json:"writingStyle"`
	AssignedChannels []string     `json:"assignedChannels,omitempty"`
}

// AssignedTo reports whether the persona is assigned to the named channel.
func (p Persona) AssignedTo(channel string) bool {
	for _, c := range p.AssignedChannels {
		if c == channel {
			return true
		}
	}
	return false
}
