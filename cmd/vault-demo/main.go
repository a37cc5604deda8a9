// Command vault-demo walks two accounts through the managed coin and vault
// flow: fund, publish the Vault module, mint, pause, deposit and withdraw.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/Klingon-tech/vaultclient/config"
	"github.com/Klingon-tech/vaultclient/internal/log"
	"github.com/Klingon-tech/vaultclient/internal/metrics"
	"github.com/Klingon-tech/vaultclient/pkg/client"
	"github.com/Klingon-tech/vaultclient/pkg/faucet"
	"github.com/Klingon-tech/vaultclient/pkg/identity"
	"github.com/Klingon-tech/vaultclient/pkg/tx"
	"github.com/Klingon-tech/vaultclient/pkg/types"
	"github.com/Klingon-tech/vaultclient/pkg/vault"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// fundAmount is what the faucet gives each demo account.
const fundAmount = 10_000_000

var cmdMain = &cobra.Command{
	Use:   "vault-demo <module.mv>",
	Short: "Run the Vault module demo against a node",
	Args:  cobra.ExactArgs(1),
	Run:   runDemo,
}

var flagMain struct {
	ConfigFile string
}

var (
	section = color.New(color.FgCyan, color.Bold).SprintFunc()
	good    = color.New(color.FgGreen).SprintFunc()
)

func init() {
	cmdMain.Flags().StringVarP(&flagMain.ConfigFile, "config", "c", "", "Config file (key = value)")
	config.RegisterFlags(cmdMain.Flags())
}

func main() {
	if err := cmdMain.Execute(); err != nil {
		os.Exit(1)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func check(err error) {
	if err != nil {
		fatalf("%v", err)
	}
}

func runDemo(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(flagMain.ConfigFile, cmd.Flags())
	check(err)
	check(log.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled || cfg.Metrics.Listen != "" {
		reg := prometheus.NewRegistry()
		m = metrics.New(reg, cfg.Metrics.Namespace)
		if cfg.Metrics.Listen != "" {
			srv := serveMetrics(cfg.Metrics.Listen, reg)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
		}
	}

	c, err := client.New(cfg, client.WithMetrics(m))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create node client")
	}
	defer c.Close()

	f, err := faucet.New(cfg, c)
	if err != nil {
		log.Fatal().Err(err).Str("network", string(cfg.Network)).Msg("Failed to create faucet client")
	}

	bytecode, err := os.ReadFile(args[0])
	if err != nil {
		log.Fatal().Err(err).Str("path", args[0]).Msg("Failed to read module")
	}

	admin := newIdentity("admin")
	defer admin.Zero()
	alice := newIdentity("alice")
	defer alice.Zero()

	fmt.Println(section("=== Addresses ==="))
	fmt.Printf("Admin: %s\n", admin.Address())
	fmt.Printf("Alice: %s\n", alice.Address())

	for _, id := range []*identity.Identity{admin, alice} {
		if err := f.FundAndWait(ctx, id.AuthenticationKey(), fundAmount); err != nil {
			log.Fatal().Err(err).Stringer("address", id.Address()).Msg("Funding failed")
		}
	}

	fmt.Println(section("\n=== Initial Balances ==="))
	printNativeBalance(ctx, c, "Admin", admin.Address())
	printNativeBalance(ctx, c, "Alice", alice.Address())

	pause("Update the module with Admin's address, build, copy to the provided path, and press enter.")

	contract := admin.Address()

	fmt.Println(section("\n=== Publishing module ==="))
	run(ctx, c, admin, "publish module", vault.PublishModule(bytecode))

	fmt.Println(section("\n=== Managed coin ==="))
	run(ctx, c, admin, "initialize coin", vault.InitializeCoin(contract, "Moon Coin", "MOON", 6, false))
	run(ctx, c, alice, "register coin", vault.RegisterCoin(contract))
	run(ctx, c, admin, "mint 100", vault.MintCoin(contract, alice.Address(), 100))
	printCoinBalance(ctx, c, "Alice", alice.Address(), contract)

	fmt.Println(section("\n=== Vault ==="))
	run(ctx, c, admin, "init vault", vault.InitVault(contract))

	run(ctx, c, admin, "pause vault", vault.PauseVault(contract))
	printPauseStatus(ctx, c, contract, admin.Address())

	run(ctx, c, admin, "unpause vault", vault.UnpauseVault(contract))
	printPauseStatus(ctx, c, contract, admin.Address())

	run(ctx, c, alice, "deposit 10", vault.Deposit(contract, 10))
	printCoinBalance(ctx, c, "Alice", alice.Address(), contract)

	run(ctx, c, alice, "withdraw 5", vault.Withdraw(contract, 5))
	printCoinBalance(ctx, c, "Alice", alice.Address(), contract)

	log.Demo.Info().Msg("Demo complete")
}

func newIdentity(name string) *identity.Identity {
	id, err := identity.Generate()
	if err != nil {
		log.Fatal().Err(err).Str("account", name).Msg("Failed to generate identity")
	}
	log.Demo.Debug().Str("account", name).Stringer("address", id.Address()).Msg("Identity created")
	return id
}

// run submits payload from s and waits for it to commit. Any failure ends
// the demo, since every later step depends on the earlier ones.
func run(ctx context.Context, c *client.Client, s client.Sender, step string, payload tx.Payload) {
	out, err := c.ExecuteAndWait(ctx, s, payload)
	if err == nil {
		err = out.Err()
	}
	var execErr *client.ExecutionError
	switch {
	case errors.As(err, &execErr):
		log.Fatal().Str("step", step).Stringer("hash", execErr.Hash).Str("vm_status", execErr.VMStatus).Msg("Transaction failed")
	case err != nil:
		log.Fatal().Err(err).Str("step", step).Msg("Transaction not completed")
	}
	fmt.Printf("%s %s (%s, version %d)\n", good("✓"), step, out.Hash, out.Version)
	log.Demo.Info().Str("step", step).Stringer("hash", out.Hash).Int("attempts", out.Attempts).Msg("Committed")
}

func printNativeBalance(ctx context.Context, c *client.Client, name string, addr types.Address) {
	bal, err := c.AccountBalance(ctx, addr)
	check(err)
	fmt.Printf("%s: %s\n", name, humanize.BigComma(new(big.Int).SetUint64(bal)))
}

func printCoinBalance(ctx context.Context, c *client.Client, name string, addr, coinOwner types.Address) {
	bal, ok, err := vault.ManagedCoinBalance(ctx, c, addr, coinOwner)
	check(err)
	if !ok {
		fmt.Printf("%s: not registered\n", name)
		return
	}
	fmt.Printf("%s MOON balance: %s\n", name, humanize.BigComma(new(big.Int).SetUint64(bal)))
}

func printPauseStatus(ctx context.Context, c *client.Client, contract, addr types.Address) {
	paused, ok, err := vault.PauseStatus(ctx, c, contract, addr)
	check(err)
	if !ok {
		fmt.Println("Vault not initialized")
		return
	}
	fmt.Printf("Vault paused: %t\n", paused)
}

// pause waits for Enter when a person is at the terminal.
func pause(prompt string) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return
	}
	fmt.Println(prompt)
	_, _ = bufio.NewReader(os.Stdin).ReadString('\n')
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Demo.Error().Err(err).Str("addr", addr).Msg("Metrics server stopped")
		}
	}()
	log.Demo.Info().Str("addr", addr).Msg("Serving metrics")
	return srv
}
