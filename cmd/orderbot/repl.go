package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ashureev/orderbot/internal/cartline"
	"github.com/ashureev/orderbot/internal/chat"
	"github.com/ashureev/orderbot/internal/command"
	"github.com/ashureev/orderbot/internal/domain"
)

// action is what the REPL does with one input line.
type action int

const (
	actionSkip action = iota
	actionSubmit
	actionQuit
	actionHelp
	actionSession
	actionReset
)

const helpText = `Commands:
  /cart                              show the cart
  /add <qty> <size> <item>           add an item, e.g. /add 2 medium cheeseburger
  /remove <position>                 remove a cart entry
  /update <position> [size] [qty n]  change size and/or quantity
  /menu                              list the menu
  /clear                             empty the cart
  /checkout                          place the order
  /session                           show the session id
  /reset                             start a fresh transcript
  /quit                              leave
Anything else is sent as typed.`

var errUsage = errors.New("usage")

// parseLine maps one line of input to an intent or a local action.
// Free-form text is sent as typed.
func parseLine(line string) (command.Intent, action, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return command.Intent{}, actionSkip, nil
	}
	if !strings.HasPrefix(trimmed, "/") {
		return command.FreeForm(line), actionSubmit, nil
	}

	fields := strings.Fields(trimmed)
	name, args := strings.ToLower(fields[0]), fields[1:]
	switch name {
	case "/quit", "/exit":
		return command.Intent{}, actionQuit, nil
	case "/help":
		return command.Intent{}, actionHelp, nil
	case "/session":
		return command.Intent{}, actionSession, nil
	case "/reset":
		return command.Intent{}, actionReset, nil
	case "/cart":
		return command.ViewCart(), actionSubmit, nil
	case "/menu":
		return command.Menu(), actionSubmit, nil
	case "/clear":
		return command.Clear(), actionSubmit, nil
	case "/checkout":
		return command.Checkout(), actionSubmit, nil
	case "/add":
		if len(args) < 3 {
			return command.Intent{}, actionSkip, fmt.Errorf("%w: /add <qty> <size> <item>", errUsage)
		}
		qty, err := positive(args[0])
		if err != nil {
			return command.Intent{}, actionSkip, fmt.Errorf("quantity: %w", err)
		}
		return command.Add(qty, args[1], strings.Join(args[2:], " ")), actionSubmit, nil
	case "/remove":
		if len(args) != 1 {
			return command.Intent{}, actionSkip, fmt.Errorf("%w: /remove <position>", errUsage)
		}
		pos, err := positive(args[0])
		if err != nil {
			return command.Intent{}, actionSkip, fmt.Errorf("position: %w", err)
		}
		return command.Remove(pos), actionSubmit, nil
	case "/update":
		return parseUpdate(args)
	default:
		return command.Intent{}, actionSkip, fmt.Errorf("unknown command %s, try /help", name)
	}
}

func parseUpdate(args []string) (command.Intent, action, error) {
	usage := fmt.Errorf("%w: /update <position> [size] [qty n]", errUsage)
	if len(args) == 0 {
		return command.Intent{}, actionSkip, usage
	}
	pos, err := positive(args[0])
	if err != nil {
		return command.Intent{}, actionSkip, fmt.Errorf("position: %w", err)
	}

	var size string
	var qty int
	rest := args[1:]
	for len(rest) > 0 {
		switch strings.ToLower(rest[0]) {
		case "qty", "quantity":
			if len(rest) < 2 {
				return command.Intent{}, actionSkip, usage
			}
			if qty, err = positive(rest[1]); err != nil {
				return command.Intent{}, actionSkip, fmt.Errorf("quantity: %w", err)
			}
			rest = rest[2:]
		default:
			if size != "" {
				return command.Intent{}, actionSkip, usage
			}
			size = rest[0]
			rest = rest[1:]
		}
	}
	if size == "" && qty == 0 {
		return command.Intent{}, actionSkip, usage
	}
	return command.Update(pos, size, qty), actionSubmit, nil
}

func positive(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%q is not a positive number", s)
	}
	return n, nil
}

// sessionInfo is the part of the identity provider the REPL shows.
type sessionInfo interface {
	GetOrCreate(ctx context.Context) string
	Degraded() bool
}

// runREPL reads lines from in until EOF, /quit or ctx is done.
func runREPL(ctx context.Context, sess *chat.Session, ident sessionInfo, in io.Reader, out io.Writer) error {
	printMessages(out, sess.Transcript())
	if cart := sess.Cart(); len(cart) > 0 {
		printCart(out, cart)
	}

	lines := make(chan string)
	scanErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(out, "> ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			line = l
		}

		intent, act, err := parseLine(line)
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		switch act {
		case actionSkip:
		case actionQuit:
			return nil
		case actionHelp:
			fmt.Fprintln(out, helpText)
		case actionSession:
			fmt.Fprintln(out, "session:", ident.GetOrCreate(ctx))
			if ident.Degraded() {
				fmt.Fprintln(out, "(not persisted: no writable state file)")
			}
		case actionReset:
			sess.Reset()
			printMessages(out, sess.Transcript())
		case actionSubmit:
			if err := submitAndRender(ctx, sess, intent, out); err != nil {
				fmt.Fprintln(out, err)
			}
		}
	}
}

// submitAndRender runs one turn and prints the bot messages it added, then the
// cart when it changed.
func submitAndRender(ctx context.Context, sess *chat.Session, intent command.Intent, out io.Writer) error {
	before := len(sess.Transcript())
	turn, err := sess.Submit(ctx, intent)
	if err != nil {
		return err
	}
	if turn.Stale {
		return nil
	}

	transcript := sess.Transcript()
	if before > len(transcript) {
		before = 0
	}
	var added []domain.Message
	for _, m := range transcript[before:] {
		if !m.IsUser() {
			added = append(added, m)
		}
	}
	printMessages(out, added)

	// A cart view already printed the cart as the reply.
	if turn.CartRefreshed && !intent.IsCartView() {
		printCart(out, sess.Cart())
	}
	return nil
}

func printMessages(out io.Writer, msgs []domain.Message) {
	for _, m := range msgs {
		prefix := "bot> "
		if m.IsUser() {
			prefix = "you> "
		}
		for i, l := range strings.Split(m.Text, "\n") {
			if i == 0 {
				fmt.Fprintln(out, prefix+l)
			} else {
				fmt.Fprintln(out, strings.Repeat(" ", len(prefix))+l)
			}
		}
	}
}

func printCart(out io.Writer, cart domain.CartSnapshot) {
	fmt.Fprintln(out, "--- cart ---")
	fmt.Fprintln(out, cartline.FormatCart(cart))
}
