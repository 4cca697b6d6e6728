package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/govm-net/clicker/clicker"
	"github.com/govm-net/clicker/config"
	_ "github.com/govm-net/clicker/context/db"
	_ "github.com/govm-net/clicker/context/memory"
	"github.com/govm-net/clicker/vm"
	"github.com/govm-net/clicker/wallet"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// app holds what the commands share. The engine is opened on first use.
type app struct {
	envFile string
	keypath string

	cfg     *config.Config
	engine  *vm.Engine
	program *clicker.Program
	printer *message.Printer
}

func newRootCmd() *cobra.Command {
	a := &app{printer: message.NewPrinter(language.English)}

	root := &cobra.Command{
		Use:   "clicker-cli",
		Short: "Click counter game command line tool",
		Long: `Click counter game command line tool.
Creates games, clicks them and shows the leaderboard on a local ledger.
Settings come from CLICKER_* environment variables or a .env file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file to load")
	root.PersistentFlags().StringVarP(&a.keypath, "keypair", "k", "", "keypair file (default $CLICKER_KEYPAIR or ~/.config/clicker/id.json)")

	root.AddCommand(
		a.keygenCmd(),
		a.airdropCmd(),
		a.balanceCmd(),
		a.initCmd(),
		a.clickCmd(),
		a.showCmd(),
		a.gamesCmd(),
		a.leaderboardCmd(),
	)
	// PersistentPostRunE is skipped when a command fails
	for _, sub := range root.Commands() {
		run := sub.RunE
		sub.RunE = func(cmd *cobra.Command, args []string) error {
			err := run(cmd, args)
			if err != nil {
				a.close()
			}
			return err
		}
	}
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return err
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
	a.cfg = cfg
	return nil
}

// open starts the engine and deploys the game.
func (a *app) open() (*vm.Engine, error) {
	if a.engine != nil {
		return a.engine, nil
	}
	engine, err := vm.NewEngine(a.cfg.EngineConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create VM engine: %w", err)
	}
	program := clicker.New(a.cfg.GameVariant())
	if err := engine.Deploy(program); err != nil {
		engine.Close()
		return nil, err
	}
	slog.Debug("engine ready", "context", a.cfg.Context, "variant", program.Variant())
	a.engine = engine
	a.program = program
	return engine, nil
}

func (a *app) close() error {
	if a.engine == nil {
		return nil
	}
	err := a.engine.Close()
	a.engine = nil
	return err
}

func (a *app) keypairPath() (string, error) {
	if a.keypath != "" {
		return a.keypath, nil
	}
	if a.cfg != nil && a.cfg.Keypair != "" {
		return a.cfg.Keypair, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("no keypair path: %w", err)
	}
	return filepath.Join(home, ".config", "clicker", "id.json"), nil
}

func (a *app) loadKeypair() (*wallet.Keypair, error) {
	path, err := a.keypairPath()
	if err != nil {
		return nil, err
	}
	kp, err := wallet.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load keypair (run keygen first): %w", err)
	}
	return kp, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
