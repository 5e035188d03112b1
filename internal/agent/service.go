package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ashureev/orderbot/internal/cartline"
	"github.com/ashureev/orderbot/internal/domain"
	"github.com/ashureev/orderbot/internal/menu"
	"github.com/ashureev/orderbot/internal/store"
)

// UnknownReply is sent when no action could be read from the message.
const UnknownReply = "Sorry, I didn't understand. Try 'menu', 'cart', 'add 2 medium cheeseburgers', 'remove 1', 'update 1 size large', or 'checkout'."

// Service runs one chat turn against a session's cart.
type Service struct {
	repo    store.Repository
	catalog *menu.Catalog
	parser  IntentParser
	logger  *slog.Logger
}

// NewService creates the order service. A nil parser uses the heuristic parser.
func NewService(repo store.Repository, catalog *menu.Catalog, parser IntentParser, logger *slog.Logger) *Service {
	if parser == nil {
		parser = NewHeuristicParser()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, catalog: catalog, parser: parser, logger: logger}
}

// turn is the outcome of dispatching one intent.
type turn struct {
	reply    string
	withCart bool
}

// Chat handles one message. An empty sessionID runs against a throwaway
// session so nothing is read or saved. Errors are storage failures only;
// order problems are reported in the reply text.
func (s *Service) Chat(ctx context.Context, sessionID, message string) (domain.ChatReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return domain.ChatReply{}, domain.ErrEmptyMessage
	}

	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return domain.ChatReply{}, err
	}

	intent, err := s.parser.Parse(ctx, message)
	if err != nil {
		s.logger.Warn("intent parse failed", "session_id", sessionID, "error", err)
		intent = ParsedIntent{Action: ActionUnknown, Raw: message}
	}

	t := s.dispatch(sess, intent)

	if sessionID != "" {
		if err := s.repo.SaveSession(ctx, sess); err != nil {
			return domain.ChatReply{}, fmt.Errorf("save session: %w", err)
		}
	}

	s.logger.Debug("chat turn", "session_id", sessionID, "action", string(intent.Action), "cart_items", len(sess.Cart))

	reply := domain.ChatReply{Reply: t.reply}
	if t.withCart {
		reply.Cart = domain.NewCartState(sess.Snapshot())
	}
	return reply, nil
}

// Cart returns the session's cart without running a turn.
func (s *Service) Cart(ctx context.Context, sessionID string) (domain.CartSnapshot, error) {
	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Snapshot(), nil
}

func (s *Service) loadSession(ctx context.Context, sessionID string) (*domain.OrderSession, error) {
	if sessionID == "" {
		return domain.NewOrderSession(""), nil
	}
	sess, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		sess = domain.NewOrderSession(sessionID)
	}
	return sess, nil
}

//nolint:gocyclo // One case per action.
func (s *Service) dispatch(sess *domain.OrderSession, in ParsedIntent) turn {
	switch in.Action {
	case ActionMenu:
		return turn{reply: s.catalog.Format()}

	case ActionShow:
		return turn{reply: cartText(sess), withCart: true}

	case ActionClear:
		sess.Clear()
		return turn{reply: "Cart cleared.", withCart: true}

	case ActionAdd:
		msg, problem := s.add(sess, in)
		return cartTurn(sess, msg, problem)

	case ActionRemove:
		removed, err := sess.RemoveAt(in.Index)
		if err != nil {
			return cartTurn(sess, "", "Invalid item number to remove.")
		}
		return cartTurn(sess, fmt.Sprintf("Removed %d x %s %s.", removed.Qty, removed.Size, removed.Item), "")

	case ActionUpdate:
		msg, problem := s.update(sess, in)
		return cartTurn(sess, msg, problem)

	case ActionName:
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return turn{reply: "Error: No name provided."}
		}
		sess.Name = name
		return turn{reply: "Got it — I’ll use the name: " + name + "."}

	case ActionAddress:
		addr := strings.TrimSpace(in.Address)
		if addr == "" {
			return turn{reply: "Error: No address provided."}
		}
		sess.Delivery = addr
		return turn{reply: "Got it — delivery/pickup set to: " + addr + "."}

	case ActionCheckout:
		return s.checkout(sess)

	default:
		return turn{reply: UnknownReply}
	}
}

// add returns the confirmation, or the problem shown to the user.
func (s *Service) add(sess *domain.OrderSession, in ParsedIntent) (msg, problem string) {
	item := strings.TrimSpace(in.Item)
	if item == "" {
		return "", "No item provided."
	}
	size := strings.ToLower(strings.TrimSpace(in.Size))
	dish, price, err := s.catalog.Price(item, size)
	switch {
	case errors.Is(err, domain.ErrItemNotOnMenu):
		return "", fmt.Sprintf("'%s' is not on the menu.", item)
	case errors.Is(err, domain.ErrInvalidSize):
		return "", fmt.Sprintf("Invalid size '%s'. Choose %s.", size, s.sizeChoices())
	case err != nil:
		return "", err.Error()
	}
	if err := sess.AddItem(domain.CartItem{Item: dish.Name, Size: size, Qty: in.Qty, Price: price}); err != nil {
		return "", "Quantity must be 1 or greater."
	}
	return fmt.Sprintf("Added %d x %s %s.", in.Qty, size, dish.Name), ""
}

// update validates every change before applying any of them.
func (s *Service) update(sess *domain.OrderSession, in ParsedIntent) (msg, problem string) {
	entry, err := sess.At(in.Index)
	if err != nil {
		return "", "Invalid item number to update."
	}
	size := strings.ToLower(strings.TrimSpace(in.Size))
	if size == "" && in.Qty == 0 {
		return "", "Nothing to update. Give a size or a quantity."
	}
	if in.Qty < 0 {
		return "", "Quantity must be 1 or greater."
	}

	if size != "" {
		_, price, err := s.catalog.Price(entry.Item, size)
		if err != nil {
			return "", fmt.Sprintf("Invalid size '%s'.", size)
		}
		entry.Size = size
		entry.Price = price
	}
	if in.Qty > 0 {
		entry.Qty = in.Qty
	}
	return "Updated item " + strconv.Itoa(in.Index) + ".", ""
}

func (s *Service) checkout(sess *domain.OrderSession) turn {
	switch {
	case len(sess.Cart) == 0:
		return turn{reply: "Your cart is empty. Add items before checkout.", withCart: true}
	case sess.Name == "":
		return turn{reply: "Please provide your name before checkout (e.g., 'My name is Alice').", withCart: true}
	case sess.Delivery == "":
		return turn{reply: "Please provide pickup/delivery address before checkout (e.g., 'Address: 123 Street').", withCart: true}
	}
	summary := cartText(sess)
	s.logger.Info("order confirmed", "session_id", sess.SessionID, "items", len(sess.Cart), "total", sess.Total().StringFixed(2))
	sess.Clear()
	return turn{
		reply:    "Order confirmed for " + sess.Name + " - " + sess.Delivery + "\n\n" + summary,
		withCart: true,
	}
}

func (s *Service) sizeChoices() string {
	sizes := s.catalog.Sizes()
	if len(sizes) < 2 {
		return strings.Join(sizes, "")
	}
	return strings.Join(sizes[:len(sizes)-1], ", ") + ", or " + sizes[len(sizes)-1]
}

// cartTurn renders a mutation result: the message and the cart on success,
// "Error: <problem>" on failure.
func cartTurn(sess *domain.OrderSession, msg, problem string) turn {
	if problem != "" {
		return turn{reply: "Error: " + problem, withCart: true}
	}
	return turn{reply: msg + "\n\n" + cartText(sess), withCart: true}
}

func cartText(sess *domain.OrderSession) string {
	return cartline.FormatCart(sess.Snapshot())
}
