package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ashureev/orderbot/internal/assistant"
	"github.com/ashureev/orderbot/internal/chat"
	"github.com/ashureev/orderbot/internal/command"
	"github.com/ashureev/orderbot/internal/config"
	"github.com/ashureev/orderbot/internal/identity"
	"github.com/ashureev/orderbot/internal/store"
	"github.com/spf13/cobra"
)

// app wires the client: durable state, identity, transport and session.
type app struct {
	kv        store.KeyValue
	identity  *identity.Provider
	session   *chat.Session
	closeConn func() error
}

func newApp(ctx context.Context, cfg *config.ClientConfig) (*app, error) {
	logger := slog.Default()

	var kv store.KeyValue
	if cfg.StatePath != "" {
		sqliteKV, err := store.NewSQLiteKV(cfg.StatePath)
		if err != nil {
			logger.Warn("session state unavailable, cart will not survive restart", "path", cfg.StatePath, "error", err)
		} else {
			kv = sqliteKV
		}
	}
	ident := identity.NewProvider(kv, logger)

	var transportClient assistant.OrderAssistant
	closeConn := func() error { return nil }
	switch cfg.Transport {
	case config.TransportWebSocket:
		ws := assistant.NewWebSocketClient(cfg.ServerURL, cfg.Timeout, logger)
		transportClient = ws
		closeConn = ws.Close
	default:
		transportClient = assistant.NewHTTPClient(cfg.ServerURL, cfg.Timeout, logger)
	}

	session := chat.New(transportClient, ident,
		chat.WithLogger(logger),
		chat.WithTrustEchoedCart(cfg.TrustEchoedCart),
	)
	if err := session.Start(ctx); err != nil {
		logger.Warn("initial cart fetch failed", "error", err)
	}

	return &app{kv: kv, identity: ident, session: session, closeConn: closeConn}, nil
}

func (a *app) Close() {
	if err := a.closeConn(); err != nil {
		slog.Debug("failed to close connection", "error", err)
	}
	if a.kv != nil {
		if err := a.kv.Close(); err != nil {
			slog.Debug("failed to close session state", "error", err)
		}
	}
}

func runSend(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	intent, act, err := parseLine(strings.Join(args, " "))
	if err != nil {
		return err
	}
	if act != actionSubmit {
		return fmt.Errorf("only messages and cart commands can be sent")
	}
	return submitAndRender(cmd.Context(), a.session, intent, cmd.OutOrStdout())
}

func runCart(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return submitAndRender(cmd.Context(), a.session, command.ViewCart(), cmd.OutOrStdout())
}

func runSession(cmd *cobra.Command, _ []string) error {
	var kv store.KeyValue
	if cfg.StatePath != "" {
		sqliteKV, err := store.NewSQLiteKV(cfg.StatePath)
		if err != nil {
			return fmt.Errorf("open session state: %w", err)
		}
		defer func() { _ = sqliteKV.Close() }()
		kv = sqliteKV
	}
	ident := identity.NewProvider(kv, slog.Default())

	out := cmd.OutOrStdout()
	if resetSession {
		if err := ident.Forget(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(out, "Session id removed; the next request starts a new cart.")
		return nil
	}
	fmt.Fprintln(out, ident.GetOrCreate(cmd.Context()))
	if ident.Degraded() {
		fmt.Fprintln(out, "(not persisted: no writable state file)")
	}
	return nil
}
