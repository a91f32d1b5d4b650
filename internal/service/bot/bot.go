package bot

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// botNick is the in-world service bot that answers ! commands.
const botNick = "mirabot"

// handlerFunc produces a response for one bot command. args is the text
// after the command token; user is who asked.
type handlerFunc func(args, user, channel string) string

// Dispatcher maps leading-! tokens to independent handlers. There is no
// shared state machine here on purpose.
type Dispatcher struct {
	mu       sync.Mutex
	rng      *rand.Rand
	handlers map[string]handlerFunc
}

// New builds the default command table.
func New() *Dispatcher {
	d := &Dispatcher{
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		handlers: make(map[string]handlerFunc),
	}
	d.handlers["help"] = d.handleHelp
	d.handlers["roll"] = d.handleRoll
	d.handlers["8ball"] = d.handleEightBall
	d.handlers["coin"] = d.handleCoin
	d.handlers["quote"] = d.handleQuote
	d.handlers["joke"] = d.handleJoke
	d.handlers["weather"] = d.handleWeather
	return d
}

// Nick returns the bot's nickname.
func (d *Dispatcher) Nick() string { return botNick }

// Handle runs a "!command args" input. Returns the command name and the
// response, or ok=false when the input is not a known bot command.
func (d *Dispatcher) Handle(input, user, channel string) (command, response string, ok bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "!") {
		return "", "", false
	}
	name, args, _ := strings.Cut(input[1:], " ")
	name = strings.ToLower(name)

	handler, found := d.handlers[name]
	if !found {
		return "", "", false
	}
	return name, handler(strings.TrimSpace(args), user, channel), true
}

func (d *Dispatcher) handleHelp(_, _, _ string) string {
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, "!"+name)
	}
	sort.Strings(names)
	return "Commands: " + strings.Join(names, ", ")
}

func (d *Dispatcher) handleRoll(args, user, _ string) string {
	sides := 6
	if args != "" {
		if n, err := strconv.Atoi(strings.TrimPrefix(args, "d")); err == nil && n > 1 {
			sides = n
		}
	}
	d.mu.Lock()
	result := 1 + d.rng.Intn(sides)
	d.mu.Unlock()
	return fmt.Sprintf("%s rolls a d%d: %d", user, sides, result)
}

func (d *Dispatcher) handleEightBall(_, _, _ string) string {
	answers := []string{
		"It is certain.", "Without a doubt.", "Most likely.",
		"Ask again later.", "Cannot predict now.",
		"Don't count on it.", "Very doubtful.", "Outlook not so good.",
	}
	return d.pick(answers)
}

func (d *Dispatcher) handleCoin(_, _, _ string) string {
	return d.pick([]string{"Heads!", "Tails!"})
}

func (d *Dispatcher) handleQuote(_, _, _ string) string {
	quotes := []string{
		"\"Talk is cheap. Show me the code.\" — Linus Torvalds",
		"\"Simplicity is prerequisite for reliability.\" — Edsger Dijkstra",
		"\"The best way to predict the future is to invent it.\" — Alan Kay",
		"\"Deleted code is debugged code.\" — Jeff Sickel",
	}
	return d.pick(quotes)
}

func (d *Dispatcher) handleJoke(_, _, _ string) string {
	jokes := []string{
		"There are two hard things in computer science: cache invalidation, naming things, and off-by-one errors.",
		"A SQL query walks into a bar, goes up to two tables and asks: may I join you?",
		"Why do programmers confuse Halloween and Christmas? Because OCT 31 == DEC 25.",
	}
	return d.pick(jokes)
}

func (d *Dispatcher) handleWeather(args, _, _ string) string {
	place := args
	if place == "" {
		place = "your area"
	}
	conditions := []string{"clear skies", "light rain", "scattered clouds", "a warm breeze", "fog rolling in"}
	d.mu.Lock()
	temp := 8 + d.rng.Intn(20)
	cond := conditions[d.rng.Intn(len(conditions))]
	d.mu.Unlock()
	return fmt.Sprintf("Weather for %s: %s, %d°C", place, cond, temp)
}

func (d *Dispatcher) pick(options []string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return options[d.rng.Intn(len(options))]
}
