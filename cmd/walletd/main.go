package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/fystack/walletcore/pkg/bridge"
	"github.com/fystack/walletcore/pkg/config"
	"github.com/fystack/walletcore/pkg/host"
	"github.com/fystack/walletcore/pkg/journal"
	"github.com/fystack/walletcore/pkg/logger"
	"github.com/fystack/walletcore/pkg/rpc"
	"github.com/fystack/walletcore/pkg/signer"
	"github.com/fystack/walletcore/pkg/wallet"
	"github.com/fystack/walletcore/pkg/wire"
)

const (
	ENVIRONMENT = "ENVIRONMENT"
)

func main() {
	app := &cli.Command{
		Name:  "walletd",
		Usage: "Solana wallet signing core",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run the signing core against the loopback host",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "signer",
						Aliases: []string{"s"},
						Value:   "local",
						Usage:   "Signing backend: local, hardware or host",
					},
					&cli.BoolFlag{
						Name:    "prompt-password",
						Aliases: []string{"p"},
						Usage:   "Prompt for the key file password",
					},
					&cli.BoolFlag{
						Name:  "debug",
						Usage: "Enable debug logging",
					},
					&cli.IntFlag{
						Name:  "lamports",
						Value: 1_000,
						Usage: "Demo transfer amount",
					},
				},
				Action: run,
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *cli.Command) error {
	environment := os.Getenv(ENVIRONMENT)
	config.InitViperConfig()
	logger.Init(environment, c.Bool("debug"))

	cfg := config.LoadConfig()
	logger.Info("Loaded config", "config", cfg.MarshalJSONMask())

	store := openJournal(cfg)
	if store != nil {
		defer store.Close()
	}

	rpcClient, err := rpc.NewClient(rpc.Options{URL: cfg.RPC.URL, Timeout: cfg.RPC.Timeout})
	if err != nil {
		logger.Fatal("Failed to create rpc client", err)
	}

	ingress := bridge.NewIngress()

	// The loopback host stands in for the mobile application: it signs with
	// an ephemeral key and answers through the same bridge a real host uses.
	_, hostKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		logger.Fatal("Failed to generate loopback key", err)
	}
	loop, err := host.NewLoopback(ingress, hostKey)
	if err != nil {
		logger.Fatal("Failed to create loopback host", err)
	}

	active, err := buildSigner(c, cfg, loop)
	if err != nil {
		logger.Fatal("Failed to build signer", err)
	}

	engine, err := wallet.NewEngine(wallet.Options{
		Ingress:     ingress,
		Dispatcher:  loop,
		Signer:      active,
		RPC:         rpcClient,
		Journal:     store,
		SettleDelay: cfg.SettleDelay,
		Greeting:    cfg.GreetingMessage,
	})
	if err != nil {
		logger.Fatal("Failed to create engine", err)
	}

	engine.Transaction().Watch(func(st wallet.TxState) {
		logger.Info("Transaction slot", "phase", st.Phase.String(), "error", st.Err)
	})
	engine.Message().Watch(func(ms wallet.MsgState) {
		logger.Info("Message slot", "phase", ms.Phase.String(), "error", ms.Err)
	})

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() {
		done <- engine.Run(runCtx)
	}()

	logger.Info("Signing core started", "signer", active.Name(), "environment", environment)
	if err := engine.Connect(); err != nil {
		logger.Fatal("Failed to connect wallet", err)
	}

	go demoTransfer(runCtx, engine, rpcClient, uint64(c.Int("lamports")))

	if err := <-done; err != nil && err != context.Canceled {
		logger.Error("Consumer loop stopped", err)
	}
	logger.Info("Signing core stopped")
	return nil
}

// demoTransfer waits for the session identity and then drives one
// self-transfer through the full sign-and-submit path.
func demoTransfer(ctx context.Context, engine *wallet.Engine, client *rpc.Client, lamports uint64) {
	id, ok := awaitIdentity(ctx, engine)
	if !ok {
		return
	}

	recent, err := client.GetLatestBlockhash(ctx)
	if err != nil {
		logger.Error("Failed to fetch blockhash", err)
		return
	}

	tx := wire.NewTransferTransaction(id.Key, id.Key, lamports, recent)
	token, err := engine.RequestSignTransaction(tx)
	if err != nil {
		logger.Error("Failed to request transaction signature", err)
		return
	}
	logger.Info("Demo transfer requested", "token", token.String(), "lamports", lamports)
}

func awaitIdentity(ctx context.Context, engine *wallet.Engine) (wallet.Identity, bool) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return wallet.Identity{}, false
		case <-ticker.C:
			if id := engine.Identity().Load(); id.Connected {
				return id, true
			}
		}
	}
}

func buildSigner(c *cli.Command, cfg *config.AppConfig, loop *host.Loopback) (*signer.Signer, error) {
	switch c.String("signer") {
	case "local":
		password := cfg.Signer.KeyPassword
		if c.Bool("prompt-password") {
			pw, err := promptPassword("Enter key file password: ")
			if err != nil {
				return nil, err
			}
			password = pw
		}
		local, err := signer.NewLocalSigner(signer.LocalSignerOptions{
			KeyPath:  cfg.Signer.KeyPath,
			Password: password,
		})
		if err != nil {
			return nil, err
		}
		return signer.NewLocal(local), nil

	case "hardware":
		name := cfg.Signer.DeviceName
		if name == "" {
			name = host.LoopbackDeviceName
		}
		hw := signer.NewHardwareSigner(name, loop, cfg.Signer.DeviceTimeout)
		return signer.NewHardware(hw), nil

	case "host":
		return signer.NewHost(signer.NewHostSigner(loop, nil)), nil

	default:
		return nil, fmt.Errorf("unknown signer backend: %s", c.String("signer"))
	}
}

func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(raw), nil
}

func openJournal(cfg *config.AppConfig) journal.Store {
	if cfg.JournalPath == "" {
		return nil
	}
	var key []byte
	if cfg.JournalPassword != "" {
		sum := sha256.Sum256([]byte(cfg.JournalPassword))
		key = sum[:]
	}
	store, err := journal.NewBadgerStore(cfg.JournalPath, key)
	if err != nil {
		logger.Fatal("Failed to open submission journal", err)
	}
	return store
}
