package commands

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mirageworld/mirage/backend/internal/model/chat"
	"github.com/mirageworld/mirage/backend/internal/service/pipeline"
	"github.com/mirageworld/mirage/backend/internal/world"
)

var ErrNotACommand = errors.New("not a slash command")

const helpText = "Available commands: /topic <text>, /me <action>, /join <#channel>, /part, /nick <name>, /help"

// Dispatcher executes the user-facing slash commands. Every command's
// output, like all other content, goes through the integration pipeline.
type Dispatcher struct {
	world  *world.Store
	pipe   *pipeline.Pipeline
	logger *zap.Logger
}

// New wires the command surface.
func New(w *world.Store, pipe *pipeline.Pipeline, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{world: w, pipe: pipe, logger: logger}
}

// Execute parses and runs one slash command typed into the given context.
// Returns ErrNotACommand when the input doesn't start with '/'.
func (d *Dispatcher) Execute(input string, current chat.Context) error {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return ErrNotACommand
	}

	name, arg, _ := strings.Cut(input[1:], " ")
	name = strings.ToLower(name)
	arg = strings.TrimSpace(arg)
	human := d.world.HumanNickname()

	switch name {
	case "topic":
		if current.Kind != chat.ContextChannel {
			return d.system(current, "Topics only apply to channels.")
		}
		if err := d.world.SetTopic(current.Name, arg); err != nil {
			return err
		}
		_, err := d.pipe.Append(chat.Message{
			Nickname: human,
			Content:  fmt.Sprintf("%s changed the topic to: %s", human, arg),
			Type:     chat.TypeTopic,
			Command:  "topic",
		}, current)
		return err

	case "me":
		if arg == "" {
			return d.system(current, "Usage: /me <action>")
		}
		_, err := d.pipe.Append(chat.Message{
			Nickname: human,
			Content:  arg,
			Type:     chat.TypeAction,
			Command:  "me",
		}, current)
		return err

	case "join":
		channel := arg
		if channel == "" || !strings.HasPrefix(channel, "#") {
			return d.system(current, "Usage: /join <#channel>")
		}
		if err := d.world.AddChannel(channel, ""); err != nil {
			if !errors.Is(err, world.ErrChannelExists) {
				return err
			}
			if err := d.world.AddToChannel(channel, human); err != nil {
				return err
			}
		}
		_, err := d.pipe.Append(chat.Message{
			Nickname: human,
			Content:  "has joined " + channel,
			Type:     chat.TypeJoin,
			Command:  "join",
		}, chat.ChannelContext(channel))
		return err

	case "part":
		if current.Kind != chat.ContextChannel {
			return d.system(current, "You can only part a channel.")
		}
		if _, err := d.pipe.Append(chat.Message{
			Nickname: human,
			Content:  "has left " + current.Name,
			Type:     chat.TypePart,
			Command:  "part",
		}, current); err != nil {
			return err
		}
		return d.world.RemoveChannel(current.Name)

	case "nick":
		if arg == "" {
			return d.system(current, "Usage: /nick <name>")
		}
		if err := d.world.Rename(human, arg); err != nil {
			if errors.Is(err, world.ErrNicknameTaken) {
				return d.system(current, fmt.Sprintf("Nickname %q is already taken.", arg))
			}
			return err
		}
		_, err := d.pipe.Append(chat.Message{
			Nickname: arg,
			Content:  fmt.Sprintf("%s is now known as %s", human, arg),
			Type:     chat.TypeSystem,
			Command:  "nick",
		}, current)
		return err

	case "help":
		return d.system(current, helpText)

	default:
		return d.system(current, fmt.Sprintf("Unknown command: /%s. Try /help.", name))
	}
}

func (d *Dispatcher) system(target chat.Context, content string) error {
	_, err := d.pipe.Append(chat.Message{
		Nickname: "system",
		Content:  content,
		Type:     chat.TypeSystem,
	}, target)
	return err
}
