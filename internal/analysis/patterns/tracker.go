package patterns

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

const (
	maxPhrases = 50
	maxTopics  = 10

	// topicStaleAfter is how long a conversation runs before a topic nudge
	// becomes likely. Best-effort heuristic, not a correctness invariant.
	topicStaleAfter = 20 * time.Minute
)

// Tracker accumulates lightweight conversation-shape signals: recently seen
// phrases and topic drift. The scheduler consults it to occasionally nudge
// generation toward fresher ground. All state is ephemeral.
type Tracker struct {
	mu              sync.Mutex
	recentPhrases   []string
	topicHistory    []string
	lastTopicChange time.Time
	rng             *rand.Rand
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		lastTopicChange: time.Now(),
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// RecordPhrase notes a message's normalized phrase for repetition scoring.
func (t *Tracker) RecordPhrase(content string) {
	phrase := normalize(content)
	if phrase == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.recentPhrases = append(t.recentPhrases, phrase)
	if len(t.recentPhrases) > maxPhrases {
		t.recentPhrases = t.recentPhrases[len(t.recentPhrases)-maxPhrases:]
	}
}

// RecordTopic notes a topic shift at the given moment. Setting the same
// topic again is not a shift and does not refresh the staleness clock.
func (t *Tracker) RecordTopic(topic string, at time.Time) {
	topic = normalize(topic)
	if topic == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if n := len(t.topicHistory); n > 0 && t.topicHistory[n-1] == topic {
		return
	}
	t.topicHistory = append(t.topicHistory, topic)
	if len(t.topicHistory) > maxTopics {
		t.topicHistory = t.topicHistory[len(t.topicHistory)-maxTopics:]
	}
	t.lastTopicChange = at
}

// Topics returns the recorded topic history, oldest first.
func (t *Tracker) Topics() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.topicHistory...)
}

// RepetitionScore is the fraction of recent phrases that appear more than
// once, in [0, 1].
func (t *Tracker) RepetitionScore() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.recentPhrases) == 0 {
		return 0
	}
	counts := make(map[string]int, len(t.recentPhrases))
	for _, p := range t.recentPhrases {
		counts[p]++
	}
	repeated := 0
	for _, p := range t.recentPhrases {
		if counts[p] > 1 {
			repeated++
		}
	}
	return float64(repeated) / float64(len(t.recentPhrases))
}

// Hint returns a prompt nudge when the conversation looks repetitive or the
// topic has gone stale, or "" when nothing stands out. Probabilistic on
// purpose so the nudge never fires on every tick.
func (t *Tracker) Hint(now time.Time) string {
	score := t.RepetitionScore()

	t.mu.Lock()
	stale := now.Sub(t.lastTopicChange) > topicStaleAfter
	roll := t.rng.Float64()
	t.mu.Unlock()

	switch {
	case score > 0.4 && roll < 0.5:
		return "The conversation has been circling the same phrases; steer toward something new."
	case stale && roll < 0.3:
		return "The topic has gone on for a while; it would be natural to drift to a related subject."
	default:
		return ""
	}
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
