package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/bitcr/pocketd/api"
	"github.com/bitcr/pocketd/core"
	"github.com/bitcr/pocketd/events"
	"github.com/bitcr/pocketd/mint"
	"github.com/bitcr/pocketd/notifications"
	"github.com/bitcr/pocketd/repo"
	"github.com/bitcr/pocketd/version"
	"github.com/fatih/color"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("CMD")

// Start is the main entry point for pocketd. The options to this
// command are the same as the pocketd config options.
type Start struct {
	repo.Config
}

// Execute starts the pocketd daemon.
func (x *Start) Execute(args []string) error {
	cfg, _, err := repo.LoadConfig()
	if err != nil {
		return err
	}

	r, err := repo.NewRepo(cfg.DataDir)
	if err != nil {
		return err
	}

	bus := events.NewBus()
	mintTimeout := time.Duration(cfg.MintTimeout) * time.Second
	n := core.NewNode(r.DB(), bus, func(mintURL string) mint.Connector {
		return mint.NewClientWithHTTP(mintURL, &http.Client{Timeout: mintTimeout})
	})

	printSplashScreen()
	n.Start()

	go reclaimInterrupted(n)

	if cfg.NoGateway {
		select {}
	}

	gateway, err := newHTTPGateway(n, cfg)
	if err != nil {
		return err
	}

	notifier := notifications.NewNotifier(bus, r.DB(), func(i interface{}) error {
		out, err := json.MarshalIndent(i, "", "    ")
		if err != nil {
			return err
		}
		gateway.NotifyWebsockets(out)
		return nil
	})
	go notifier.Start()

	log.Infof("Gateway listening on %s", cfg.GatewayAddr)
	return gateway.Serve()
}

// reclaimInterrupted sweeps each wallet for proofs left reserved by
// operations that did not complete in a previous run.
func reclaimInterrupted(n *core.PocketNode) {
	wallets, err := n.ListWallets()
	if err != nil {
		log.Errorf("Error listing wallets on startup: %s", err)
		return
	}
	for _, w := range wallets {
		recovered, err := n.ReclaimFunds(context.Background(), w.ID)
		if err != nil {
			log.Errorf("Error reclaiming funds for wallet %s: %s", w.Name, err)
			continue
		}
		if recovered > 0 {
			log.Infof("Reclaimed %d from interrupted operations in wallet %s", recovered, w.Name)
		}
	}
}

func newHTTPGateway(n *core.PocketNode, cfg *repo.Config) (*api.Gateway, error) {
	listener, err := net.Listen("tcp", cfg.GatewayAddr)
	if err != nil {
		return nil, err
	}

	allowedIPs := make(map[string]bool)
	for _, ip := range cfg.APIAllowedIPs {
		allowedIPs[ip] = true
	}

	config := &api.GatewayConfig{
		Listener:      listener,
		NoCors:        cfg.APINoCors,
		AllowedOrigin: cfg.AllowedOrigin,
		AllowedIPs:    allowedIPs,
		Cookie:        cfg.APICookie,
		Username:      cfg.APIUsername,
		Password:      cfg.APIPassword,
		UseSSL:        cfg.UseSSL,
		SSLCert:       cfg.SSLCertFile,
		SSLKey:        cfg.SSLKeyFile,
	}

	return api.NewGateway(n, config)
}

func printSplashScreen() {
	blue := color.New(color.FgBlue)
	white := color.New(color.FgWhite)

	for i, l := range []string{
		`                     _        _      _ `,
		` _ __   ___   ___| | _____| |_ __| |`,
		`| '_ \ / _ \ / __| |/ / _ \ __/ _` + "`" + ` |`,
		`| |_) | (_) | (__|   <  __/ || (_| |`,
		`| .__/ \___/ \___|_|\_\___|\__\__,_|`,
		`|_|                                 `,
	} {
		if i%2 == 0 {
			if _, err := white.Println(l); err != nil {
				log.Debug(err)
				return
			}
			continue
		}
		if _, err := blue.Println(l); err != nil {
			log.Debug(err)
			return
		}
	}

	blue.DisableColor()
	white.DisableColor()
	fmt.Printf("\npocketd v%s\n", version.String())
}
