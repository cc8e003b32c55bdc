package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fortiblox/x1-mint/pkg/config"
	"github.com/fortiblox/x1-mint/pkg/rpc"
	"github.com/fortiblox/x1-mint/pkg/snapshot"
	"github.com/fortiblox/x1-mint/pkg/svm/programs/mintinit"
	"github.com/fortiblox/x1-mint/pkg/types"
)

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "x1-mint",
		Short:         "Run the mint initializer against a local accounts store",
		Version:       fmt.Sprintf("%s (%s)", Version, GitCommit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd.Flags())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.flags.configPath, "config", config.DefaultPath(), "Path to TOML configuration file")
	flags.StringVar(&a.flags.dataDir, "data-dir", "", "Data directory for the accounts store")
	flags.StringVar(&a.flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&a.flags.backend, "backend", "", "Accounts store backend: badger, memory")
	flags.StringVar(&a.flags.programID, "program-id", "", "Address the mint initializer is deployed at")

	root.AddCommand(
		newAllocateCmd(a),
		newInitializeCmd(a),
		newShowCmd(a),
		newKeygenCmd(),
		newSnapshotCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
	)
	return root
}

func parsePubkeyFlag(name, value string) (types.Pubkey, error) {
	if value == "" {
		return types.Pubkey{}, fmt.Errorf("--%s is required", name)
	}
	pk, err := types.PubkeyFromBase58(value)
	if err != nil {
		return types.Pubkey{}, fmt.Errorf("--%s: %w", name, err)
	}
	return pk, nil
}

func newAllocateCmd(a *app) *cobra.Command {
	var (
		lamports uint64
		space    uint64
	)

	cmd := &cobra.Command{
		Use:   "allocate [pubkey]",
		Short: "Create a funded, zeroed account owned by the mint initializer",
		Long: "Create a zeroed account of --space bytes owned by the mint initializer. " +
			"Without --lamports it is funded at the rent-exempt minimum. " +
			"Without a pubkey a fresh keypair is generated.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pubkey types.Pubkey
			if len(args) == 1 {
				pk, err := types.PubkeyFromBase58(args[0])
				if err != nil {
					return fmt.Errorf("pubkey: %w", err)
				}
				pubkey = pk
			} else {
				key, err := solana.NewRandomPrivateKey()
				if err != nil {
					return fmt.Errorf("generate keypair: %w", err)
				}
				pubkey = types.Pubkey(key.PublicKey())
			}

			n, err := a.open()
			if err != nil {
				return err
			}
			defer n.Close()

			account, err := n.rt.CreateAccount(pubkey, space, types.Lamports(lamports))
			if err != nil {
				return err
			}

			fmt.Printf("Account:  %s\n", pubkey)
			fmt.Printf("Owner:    %s\n", account.Owner)
			fmt.Printf("Space:    %d bytes\n", len(account.Data))
			fmt.Printf("Balance:  %s SOL (%d lamports)\n", account.Lamports.SOL(), account.Lamports)
			return nil
		},
	}

	cmd.Flags().Uint64Var(&lamports, "lamports", 0, "Lamports to fund the account with (0 = rent-exempt minimum)")
	cmd.Flags().Uint64Var(&space, "space", mintinit.MintSize, "Account data size in bytes")
	return cmd
}

func newInitializeCmd(a *app) *cobra.Command {
	var mintFlag, authorityFlag string

	cmd := &cobra.Command{
		Use:   "initialize",
		Short: "Initialize a mint account with a mint authority",
		RunE: func(cmd *cobra.Command, args []string) error {
			mint, err := parsePubkeyFlag("mint", mintFlag)
			if err != nil {
				return err
			}
			authority, err := parsePubkeyFlag("authority", authorityFlag)
			if err != nil {
				return err
			}

			n, err := a.open()
			if err != nil {
				return err
			}
			defer n.Close()

			ix := mintinit.NewInitializeMintInstruction(n.rt.Config().ProgramID, mint, authority)
			result, err := n.rt.ProcessInstruction(ix)
			if err != nil {
				return err
			}

			for _, line := range result.Logs {
				fmt.Println(line)
			}
			if result.Err != nil {
				if code, ok := result.ErrorCode(); ok {
					return fmt.Errorf("initialize mint: %w (code %d)", result.Err, code)
				}
				return fmt.Errorf("initialize mint: %w", result.Err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mintFlag, "mint", "", "Mint account address")
	cmd.Flags().StringVar(&authorityFlag, "authority", "", "Mint authority address")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <pubkey>",
		Short: "Print an account and, for mint accounts, the decoded mint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pubkey, err := types.PubkeyFromBase58(args[0])
			if err != nil {
				return fmt.Errorf("pubkey: %w", err)
			}

			n, err := a.open()
			if err != nil {
				return err
			}
			defer n.Close()

			account, err := n.rt.GetAccount(pubkey)
			if err != nil {
				return err
			}
			if account == nil {
				return fmt.Errorf("account %s not found", pubkey)
			}

			fmt.Printf("Account:     %s\n", pubkey)
			fmt.Printf("Owner:       %s\n", account.Owner)
			fmt.Printf("Balance:     %s SOL (%d lamports)\n", account.Lamports.SOL(), account.Lamports)
			fmt.Printf("Space:       %d bytes\n", len(account.Data))
			fmt.Printf("Executable:  %t\n", account.Executable)
			fmt.Printf("Rent exempt: %t\n", n.rt.Rent().IsExempt(uint64(account.Lamports), uint64(len(account.Data))))

			if account.Owner != n.rt.Config().ProgramID {
				return nil
			}
			mint, ok := rpc.ParseMint(account.Data)
			if !ok {
				fmt.Println("Mint:        (not a mint record)")
				return nil
			}
			fmt.Println("Mint:")
			fmt.Printf("  Initialized:      %t\n", mint.IsInitialized)
			fmt.Printf("  Mint authority:   %s\n", optionString(mint.MintAuthority))
			fmt.Printf("  Freeze authority: %s\n", optionString(mint.FreezeAuthority))
			fmt.Printf("  Supply:           %s\n", mint.Supply)
			fmt.Printf("  Decimals:         %d\n", mint.Decimals)
			return nil
		},
	}
}

func optionString(s *string) string {
	if s == nil {
		return "(none)"
	}
	return *s
}

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new keypair",
		// No configuration needed.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := solana.NewRandomPrivateKey()
			if err != nil {
				return err
			}
			fmt.Printf("Pubkey: %s\n", key.PublicKey())
			fmt.Printf("Secret: %s\n", key)
			return nil
		},
	}
}

func newSnapshotCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save or restore the accounts store",
	}

	save := &cobra.Command{
		Use:   "save <file>",
		Short: "Write the accounts store to a snapshot file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.open()
			if err != nil {
				return err
			}
			defer n.Close()

			manifest, err := snapshot.SaveFile(n.db, args[0])
			if err != nil {
				return err
			}
			printManifest(args[0], manifest)
			return nil
		},
	}

	load := &cobra.Command{
		Use:   "load <file>",
		Short: "Replace the accounts store with a snapshot file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.open()
			if err != nil {
				return err
			}
			defer n.Close()

			manifest, err := snapshot.LoadFile(n.db, args[0])
			if err != nil {
				return err
			}
			printManifest(args[0], manifest)
			return nil
		},
	}

	cmd.AddCommand(save, load)
	return cmd
}

func printManifest(path string, m *snapshot.Manifest) {
	fmt.Printf("Snapshot:   %s\n", path)
	fmt.Printf("Accounts:   %d\n", m.AccountsCount)
	fmt.Printf("Lamports:   %s SOL\n", types.Lamports(m.LamportsTotal).SOL())
	fmt.Printf("State hash: %s\n", m.StateHash)
}

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the runtime over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.RPC.Addr = addr
			}

			n, err := a.open()
			if err != nil {
				return err
			}
			defer n.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			serverConfig := rpc.DefaultServerConfig()
			serverConfig.Address = a.cfg.RPC.Addr
			server := rpc.NewServer(serverConfig, n.rt, n.metrics)

			log.Info().
				Str("addr", serverConfig.Address).
				Str("program_id", n.rt.Config().ProgramID.String()).
				Uint64("accounts", n.rt.AccountsCount()).
				Msg("starting x1-mint")
			return server.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides rpc.addr)")
	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to the config path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.flags.configPath
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := config.Save(a.cfg, path); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}
