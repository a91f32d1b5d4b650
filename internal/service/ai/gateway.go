package ai

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/mirageworld/mirage/backend/internal/config"
	"github.com/mirageworld/mirage/backend/internal/model/chat"
	"github.com/mirageworld/mirage/backend/internal/model/persona"
)

// Service is the generation gateway: it turns a channel or private
// conversation plus a triggering event into one provider call and hands the
// raw "nickname: message" text back. Retry with backoff lives here and
// nowhere else.
type Service struct {
	chatModel model.ChatModel
	chain     compose.Runnable[map[string]any, *schema.Message]
	backoff   BackoffPolicy
	humanNick string
	logger    *zap.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewService compiles the generation chain once and reuses it per request.
func NewService(ctx context.Context, cfg config.AIConfig, humanNick string, logger *zap.Logger) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		chatModel: chatModel,
		chain:     runnable,
		backoff:   DefaultBackoff(),
		humanNick: humanNick,
		logger:    logger,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// RequestChannelUtterance picks a random eligible member (never the human,
// never exclude) and asks for one line of channel chatter. An empty string
// with nil error means nobody was eligible.
func (s *Service) RequestChannelUtterance(ctx context.Context, ch chat.Channel, exclude, hint string) (string, error) {
	speaker, ok := s.pickSpeaker(ch, exclude)
	if !ok {
		return "", nil
	}

	system := buildChannelSystemPrompt(ch, speaker, s.humanNick, hint)
	query := fmt.Sprintf("Continue the conversation naturally as %s.", speaker.Nickname)
	return s.invoke(ctx, system, ch.Messages, query)
}

// RequestReaction asks for one line reacting to a specific prior message.
func (s *Service) RequestReaction(ctx context.Context, ch chat.Channel, trigger chat.Message, exclude, hint string) (string, error) {
	speaker, ok := s.pickSpeaker(ch, exclude)
	if !ok {
		return "", nil
	}

	system := buildChannelSystemPrompt(ch, speaker, s.humanNick, hint)
	query := fmt.Sprintf("%s. React as %s.", describeTrigger(trigger), speaker.Nickname)
	return s.invoke(ctx, system, ch.Messages, query)
}

// RequestPrivateReply has a fixed persona answer in character; nothing is
// randomly chosen here.
func (s *Service) RequestPrivateReply(ctx context.Context, conv chat.PrivateConversation, trigger chat.Message) (string, error) {
	system := buildPrivateSystemPrompt(conv.User, s.humanNick)
	query := fmt.Sprintf("%s. Reply as %s.", describeTrigger(trigger), conv.User.Nickname)
	return s.invoke(ctx, system, conv.Messages, query)
}

// RequestGreetings asks for one short hello line per freshly joined persona.
// The response is expected to be multi-line.
func (s *Service) RequestGreetings(ctx context.Context, ch chat.Channel, joined []persona.Persona) (string, error) {
	if len(joined) == 0 {
		return "", nil
	}
	system := buildGreetingSystemPrompt(ch, joined, s.humanNick)
	return s.invoke(ctx, system, ch.Messages, "Write the greeting lines now.")
}

func (s *Service) invoke(ctx context.Context, system string, logEntries []chat.Message, query string) (string, error) {
	input := map[string]any{
		"system":  system,
		"history": historyMessages(logEntries),
		"query":   query,
	}

	out, err := s.backoff.Do(ctx, IsRetryable, func(ctx context.Context) (string, error) {
		response, err := s.chain.Invoke(ctx, input)
		if err != nil {
			return "", err
		}
		return response.Content, nil
	})
	if err != nil {
		s.logger.Warn("generation call failed", zap.String("kind", string(KindOf(err))), zap.Error(err))
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// pickSpeaker selects a uniformly random member eligible to speak.
func (s *Service) pickSpeaker(ch chat.Channel, exclude string) (persona.Persona, bool) {
	var eligible []persona.Persona
	for _, u := range ch.Users {
		if u.Nickname == s.humanNick || u.Nickname == exclude {
			continue
		}
		eligible = append(eligible, u)
	}
	if len(eligible) == 0 {
		return persona.Persona{}, false
	}
	s.rngMu.Lock()
	i := s.rng.Intn(len(eligible))
	s.rngMu.Unlock()
	return eligible[i], true
}

// historyMessages renders the recent log window as conversation context.
func historyMessages(entries []chat.Message) []*schema.Message {
	rendered := formatHistory(entries, historyWindow)
	if rendered == "" {
		return nil
	}
	return []*schema.Message{schema.UserMessage("Recent history:\n" + rendered)}
}
