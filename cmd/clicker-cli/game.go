package main

import (
	"fmt"
	"time"

	"github.com/govm-net/clicker/clicker"
	"github.com/govm-net/clicker/core"
	"github.com/govm-net/clicker/types"
	"github.com/govm-net/clicker/vm"
	"github.com/govm-net/clicker/wallet"
	"github.com/spf13/cobra"
)

// submit runs ix in a new block, signed by payer and extra.
func (a *app) submit(payer *wallet.Keypair, ix types.Instruction, extra ...types.Signer) (*vm.Receipt, error) {
	engine, err := a.open()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if err := engine.AdvanceBlock(now.Unix()); err != nil {
		return nil, fmt.Errorf("failed to open block: %w", err)
	}

	signers := append([]types.Signer{payer}, extra...)
	tx := types.NewTransaction(payer.Address(), uint64(now.UnixNano()), ix).Sign(signers...)
	receipt, err := engine.Execute(tx)
	if err != nil {
		return nil, err
	}
	if receipt.Err != nil {
		return receipt, fmt.Errorf("transaction %s failed: %w", receipt.Hash, receipt.Err)
	}
	return receipt, nil
}

// createGame allocates a fresh game for player, paid by player.
func (a *app) createGame(player *wallet.Keypair) (core.Address, *vm.Receipt, error) {
	game, err := wallet.Generate()
	if err != nil {
		return core.Address{}, nil, err
	}
	if _, err := a.open(); err != nil {
		return core.Address{}, nil, err
	}
	ix := clicker.NewInitializeInstruction(a.program.Address(), game.Address(), player.Address())
	receipt, err := a.submit(player, ix, game)
	if err != nil {
		return core.Address{}, nil, err
	}
	return game.Address(), receipt, nil
}

func (a *app) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a new game for the keypair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			player, err := a.loadKeypair()
			if err != nil {
				return err
			}
			game, receipt, err := a.createGame(player)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Game: %s\n", game)
			fmt.Fprintf(out, "Rent: %s\n", lamports(types.RentExemptMinimum(clicker.GameSpace)))
			fmt.Fprintf(out, "Signature: %s\n", receipt.Hash)
			return nil
		},
	}
}

func (a *app) clickCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "click [game]",
		Short: "Click a game (default: your first game, created when missing)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			player, err := a.loadKeypair()
			if err != nil {
				return err
			}
			engine, err := a.open()
			if err != nil {
				return err
			}

			var game core.Address
			if len(args) == 1 {
				if game, err = core.AddressFromString(args[0]); err != nil {
					return err
				}
			} else {
				cur, ok, err := clicker.CurrentGame(engine.GetContext(), a.program.Address(), player.Address())
				if err != nil {
					return err
				}
				if ok {
					game = cur.Address
				} else {
					if game, _, err = a.createGame(player); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Game: %s\n", game)
				}
			}

			ix := clicker.NewClickInstruction(a.program.Address(), game, player.Address())
			if _, err := a.submit(player, ix); err != nil {
				return err
			}
			g, err := clicker.FetchGame(engine.GetContext(), a.program.Address(), game)
			if err != nil {
				return err
			}
			a.printer.Fprintf(cmd.OutOrStdout(), "Clicks: %d\n", g.Clicks)
			return nil
		},
	}
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <game>",
		Short: "Show a game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := core.AddressFromString(args[0])
			if err != nil {
				return err
			}
			engine, err := a.open()
			if err != nil {
				return err
			}
			g, err := clicker.FetchGame(engine.GetContext(), a.program.Address(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Game: %s\n", id)
			fmt.Fprintf(out, "Player: %s\n", g.Player)
			a.printer.Fprintf(out, "Clicks: %d\n", g.Clicks)
			return nil
		},
	}
}

func (a *app) gamesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "games [player]",
		Short: "List the games of a player",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			player, err := a.addressArg(args, 0)
			if err != nil {
				return err
			}
			engine, err := a.open()
			if err != nil {
				return err
			}
			games, err := clicker.GamesByPlayer(engine.GetContext(), a.program.Address(), player)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(games) == 0 {
				fmt.Fprintln(out, "No games")
				return nil
			}
			for _, g := range games {
				a.printer.Fprintf(out, "%s  %d\n", g.Address, g.Clicks)
			}
			return nil
		},
	}
}

func (a *app) leaderboardCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Rank games by clicks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.open()
			if err != nil {
				return err
			}
			board, err := clicker.Leaderboard(engine.GetContext(), a.program.Address(), limit)
			if err != nil {
				return err
			}
			var me core.Address
			if kp, err := a.loadKeypair(); err == nil {
				me = kp.Address()
			}
			fmt.Fprint(cmd.OutOrStdout(), a.formatLeaderboard(board, me))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of games to show (0 for all)")
	return cmd
}
