package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Kyoronginus/accountlink/config"
	"github.com/Kyoronginus/accountlink/internal/bootstrap"
	"github.com/Kyoronginus/accountlink/internal/ports"
	"github.com/Kyoronginus/accountlink/internal/service"
)

const defaultCommandTimeout = 2 * time.Minute

// storeOpener returns an account store and a func that releases its connections.
type storeOpener func(ctx context.Context) (ports.AccountStore, func(), error)

type commandContext struct {
	Config    config.AppConfig
	Logger    *slog.Logger
	Out       io.Writer
	OpenStore storeOpener
}

func main() {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}
	// Keep stdout for command output.
	logger := bootstrap.NewLogger(os.Stderr, cfg.Log)

	cmdCtx := &commandContext{Config: cfg, Logger: logger, Out: os.Stdout}
	cmdCtx.OpenStore = cmdCtx.openConfiguredStore

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(cmdCtx).ExecuteContext(ctx); err != nil {
		logger.Error("command failed", "error", err)
		stop()
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func newRootCmd(cmdCtx *commandContext) *cobra.Command {
	root := &cobra.Command{
		Use:           "accountlink-admin",
		Short:         "Operate the account linking store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(cmdCtx.Out)
	root.AddCommand(
		newMigrateCmd(cmdCtx),
		newEnsureTableCmd(cmdCtx),
		newAccountCmd(cmdCtx),
		newDecideCmd(cmdCtx),
		newLinkCmd(cmdCtx),
		newSeedCmd(cmdCtx),
	)
	return root
}

func (c *commandContext) openConfiguredStore(ctx context.Context) (ports.AccountStore, func(), error) {
	cfg := c.Config
	// Admin reads must see writes immediately.
	cfg.Cache.Backend = config.CacheBackendNone
	cfg.Postgres.RunMigrationsOnStart = false

	infra, err := bootstrap.Connect(ctx, &cfg, c.Logger)
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		if cerr := infra.Close(); cerr != nil {
			c.Logger.Warn("close infrastructure failed", "error", cerr)
		}
	}
	store, err := bootstrap.BuildAccountStore(ctx, infra.StoreDeps(&cfg, c.Logger))
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("build account store: %w", err)
	}
	return store, release, nil
}

func (c *commandContext) withAdmin(ctx context.Context, fn func(*service.AccountAdminService) error) error {
	store, release, err := c.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn(service.NewAccountAdminService(store))
}

func (c *commandContext) withLinking(ctx context.Context, fn func(*service.LinkingService) error) error {
	store, release, err := c.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer release()
	cfg := c.Config
	linker, err := bootstrap.BuildLinkingService(bootstrap.LinkingDeps{Config: &cfg, Store: store, Logger: c.Logger})
	if err != nil {
		return err
	}
	return fn(linker)
}
