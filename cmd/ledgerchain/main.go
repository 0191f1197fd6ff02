package main

// A thin demo driver over the core engine: open or load a ledger, submit a
// transaction, mine and add a block, and print stats. The full external
// CLI/HTTP surfaces named out-of-scope in spec.md §1 live outside this
// repository; this command exists to exercise the engine end to end.

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"ledgerchain/core"
	"ledgerchain/pkg/config"
)

func main() {
	rootCmd := &cobra.Command{Use: "ledgerchain"}
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(transferCmd())
	rootCmd.AddCommand(mineCmd())
	rootCmd.AddCommand(statsCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		logrus.WithError(err).Warn("config load failed, using defaults")
		cfg = &config.AppConfig
		if cfg.Store.DataDir == "" {
			cfg.Store.DataDir = "./data/ledger.db"
		}
	}
	return cfg
}

func initCmd() *cobra.Command {
	var balances map[string]string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "create a new ledger with seed balances (alice=1000,bob=500)",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			seed, _ := cmd.Flags().GetStringToString("balance")
			initial := make(map[core.Address]uint64, len(seed))
			for addr, amt := range seed {
				var v uint64
				if _, err := fmt.Sscanf(amt, "%d", &v); err != nil {
					fmt.Fprintf(os.Stderr, "bad balance for %s: %v\n", addr, err)
					os.Exit(1)
				}
				initial[core.Address(addr)] = v
			}
			e, err := core.Open(cfg.Store.DataDir, initial)
			if err != nil {
				fmt.Fprintf(os.Stderr, "open: %v\n", err)
				os.Exit(1)
			}
			defer e.Close()
			fmt.Printf("ledger created at %s with %d wallets\n", cfg.Store.DataDir, len(initial))
		},
	}
	cmd.Flags().StringToStringVar(&balances, "balance", map[string]string{"alice": "1000", "bob": "500"}, "address=balance pairs")
	return cmd
}

func transferCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfer [from] [to] [amount]",
		Short: "submit a signed transaction to the mempool",
		Args:  cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			e, err := core.Load(cfg.Store.DataDir)
			if err != nil {
				fmt.Fprintf(os.Stderr, "load: %v\n", err)
				os.Exit(1)
			}
			defer e.Close()
			var amount uint64
			if _, err := fmt.Sscanf(args[2], "%d", &amount); err != nil {
				fmt.Fprintf(os.Stderr, "bad amount: %v\n", err)
				os.Exit(1)
			}
			txID, err := e.CreateTransaction(core.Address(args[0]), core.Address(args[1]), amount)
			if err != nil {
				fmt.Fprintf(os.Stderr, "create transaction: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(txID)
		},
	}
	return cmd
}

func mineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mine [proposer]",
		Short: "mine the pending mempool into a block and commit it",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			e, err := core.Load(cfg.Store.DataDir)
			if err != nil {
				fmt.Fprintf(os.Stderr, "load: %v\n", err)
				os.Exit(1)
			}
			defer e.Close()
			block, err := e.MineBlock(core.Address(args[0]))
			if err != nil {
				fmt.Fprintf(os.Stderr, "mine: %v\n", err)
				os.Exit(1)
			}
			if err := e.AddBlock(block); err != nil {
				fmt.Fprintf(os.Stderr, "add: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("committed block %d with %d transactions\n", block.Index, len(block.Transactions))
		},
	}
	return cmd
}

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "print chain height, wallet count, and validity",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			e, err := core.Load(cfg.Store.DataDir)
			if err != nil {
				fmt.Fprintf(os.Stderr, "load: %v\n", err)
				os.Exit(1)
			}
			defer e.Close()
			blob, err := json.MarshalIndent(e.Stats(), "", "  ")
			if err != nil {
				fmt.Fprintf(os.Stderr, "marshal stats: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(blob))
		},
	}
	return cmd
}
