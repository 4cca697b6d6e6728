package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/govm-net/clicker/core"
	"github.com/govm-net/clicker/wallet"
	"github.com/spf13/cobra"
)

func (a *app) keygenCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new keypair",
		Long: `Generate a new ed25519 keypair and save it in the solana-keygen format.
Example: clicker-cli keygen -k ./id.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.keypairPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}

			kp, err := wallet.Generate()
			if err != nil {
				return err
			}
			if err := kp.Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote new keypair to %s\n", path)
			fmt.Fprintf(cmd.OutOrStdout(), "pubkey: %s\n", kp.Address())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing keypair")
	return cmd
}

// addressArg parses args[i], falling back to the keypair address.
func (a *app) addressArg(args []string, i int) (core.Address, error) {
	if len(args) > i {
		return core.AddressFromString(args[i])
	}
	kp, err := a.loadKeypair()
	if err != nil {
		return core.ZeroAddress, err
	}
	return kp.Address(), nil
}

func (a *app) airdropCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "airdrop <lamports> [address]",
		Short: "Mint lamports into an account",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[0], err)
			}
			addr, err := a.addressArg(args, 1)
			if err != nil {
				return err
			}
			engine, err := a.open()
			if err != nil {
				return err
			}
			bc := engine.GetContext()
			if err := bc.Airdrop(addr, amount); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Airdropped %s to %s\n", lamports(amount), addr)
			fmt.Fprintf(cmd.OutOrStdout(), "Balance: %s\n", lamports(bc.Balance(addr)))
			return nil
		},
	}
}

func (a *app) balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance [address]",
		Short: "Show the lamports an account holds",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := a.addressArg(args, 0)
			if err != nil {
				return err
			}
			engine, err := a.open()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", lamports(engine.GetContext().Balance(addr)))
			return nil
		},
	}
}
