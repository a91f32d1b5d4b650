package persona

import (
	"encoding/json"
	"strings"
)

// Fluency levels a persona can hold in a language.
type Fluency string

const (
	FluencyBeginner     Fluency = "beginner"
	FluencyIntermediate Fluency = "intermediate"
	FluencyAdvanced     Fluency = "advanced"
	FluencyNative       Fluency = "native"
)

// LanguageSkill describes one language a persona speaks.
type LanguageSkill struct {
	Language string  `json:"language"`
	Fluency  Fluency `json:"fluency"`
	Accent   string  `json:"accent,omitempty"`
}

// SkillList is the canonical per-language shape. Imported data has carried
// several legacy encodings over time: a bare language string, a single
// object, or the current list. Unmarshalling normalizes all of them so the
// rest of the code only ever sees one shape.
type SkillList []LanguageSkill

// DefaultSkills is what a persona falls back to when imported data carries
// nothing usable.
func DefaultSkills() SkillList {
	return SkillList{{Language: "english", Fluency: FluencyNative}}
}

// UnmarshalJSON accepts the legacy encodings and normalizes them.
func (s *SkillList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*s = DefaultSkills()
		return nil
	}

	switch trimmed[0] {
	case '"':
		var lang string
		if err := json.Unmarshal(data, &lang); err != nil {
			return err
		}
		*s = normalizeOne(LanguageSkill{Language: lang, Fluency: FluencyNative})
		return nil
	case '{':
		var one LanguageSkill
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*s = normalizeOne(one)
		return nil
	default:
		var list []LanguageSkill
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		out := make(SkillList, 0, len(list))
		for _, skill := range list {
			out = append(out, normalizeOne(skill)...)
		}
		if len(out) == 0 {
			out = DefaultSkills()
		}
		*s = out
		return nil
	}
}

func normalizeOne(skill LanguageSkill) SkillList {
	skill.Language = strings.ToLower(strings.TrimSpace(skill.Language))
	if skill.Language == "" {
		return nil
	}
	switch skill.Fluency {
	case FluencyBeginner, FluencyIntermediate, FluencyAdvanced, FluencyNative:
	default:
		skill.Fluency = FluencyIntermediate
	}
	return SkillList{skill}
}

// Primary returns the first (dominant) language skill.
func (s SkillList) Primary() LanguageSkill {
	if len(s) == 0 {
		return DefaultSkills()[0]
	}
	return s[0]
}
