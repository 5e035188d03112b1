// Command orderbot is an interactive terminal client for the order assistant.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/orderbot/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose         bool
	serverURL       string
	statePath       string
	transport       string
	timeout         time.Duration
	trustEchoedCart bool

	cfg *config.ClientConfig
)

var rootCmd = &cobra.Command{
	Use:   "orderbot",
	Short: "Chat with the food order assistant",
	Long: `orderbot talks to the order assistant server and keeps your cart in sync.

Run without arguments to start the interactive chat. Your session id is stored
locally, so the cart survives restarts of both the client and the server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		cfg = config.LoadClient()
		flags := cmd.Flags()
		if flags.Changed("server") {
			cfg.ServerURL = serverURL
		}
		if flags.Changed("state") {
			cfg.StatePath = statePath
		}
		if flags.Changed("transport") {
			cfg.Transport = transport
		}
		if flags.Changed("timeout") {
			cfg.Timeout = timeout
		}
		if flags.Changed("trust-echoed-cart") {
			cfg.TrustEchoedCart = trustEchoedCart
		}
		return cfg.Validate()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		return runREPL(cmd.Context(), a.session, a.identity, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <message>",
	Short: "Send one message and print the reply",
	Example: `  orderbot send "I want 2 medium cheeseburgers"
  orderbot send remove 1`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Print the current cart",
	Args:  cobra.NoArgs,
	RunE:  runCart,
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Print the stored session id",
	Long: `Print the session id this client sends with every request.

With --reset the stored id is removed; the next request starts a new, empty cart.`,
	Args: cobra.NoArgs,
	RunE: runSession,
}

var resetSession bool

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")
	pf.StringVar(&serverURL, "server", "", "order assistant base URL (env ORDERBOT_SERVER_URL)")
	pf.StringVar(&statePath, "state", "", "file holding the session id (env ORDERBOT_STATE_PATH)")
	pf.StringVar(&transport, "transport", "", "http or ws (env ORDERBOT_TRANSPORT)")
	pf.DurationVar(&timeout, "timeout", 0, "per-request timeout (env ORDERBOT_TIMEOUT)")
	pf.BoolVar(&trustEchoedCart, "trust-echoed-cart", false, "skip the cart refresh when a reply already shows the cart")

	sessionCmd.Flags().BoolVar(&resetSession, "reset", false, "forget the stored session id")

	rootCmd.AddCommand(sendCmd, cartCmd, sessionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
