// cmd/client/main.go runs one or more bots against a server. Each bot plays
// CARDLINK_GAMES matches with a random decision policy, then disconnects.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/jason-s-yu/cardlink/internal/client"
	"github.com/jason-s-yu/cardlink/internal/config"
	"github.com/jason-s-yu/cardlink/internal/models"
	"github.com/pterm/pterm"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type botResult struct {
	account  string
	outcomes []client.Outcome
	err      error
}

func main() {
	cfg, err := config.Load[config.Client]()
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
			pterm.Error.Println(err)
			os.Exit(1)
		}
	}

	pterm.Info.Printfln("starting %d bot(s) against %s, %d game(s) each", cfg.Bots, cfg.Server, cfg.Games)

	var (
		mu      sync.Mutex
		results []botResult
	)
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.Bots; i++ {
		account := cfg.Account
		if cfg.Bots > 1 {
			account = cfg.Account + strconv.Itoa(i+1)
		}
		seed := time.Now().UnixNano() + int64(i)
		g.Go(func() error {
			res := runBot(ctx, cfg, account, seed, logger)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	printSummary(results)
}

func runBot(ctx context.Context, cfg config.Client, account string, seed int64, logger *logrus.Logger) botResult {
	c := client.New(client.Config{
		ServerURL: cfg.Server,
		Account:   account,
		Password:  cfg.Password,
		Policy:    client.NewRandomPolicy(seed),
		LogDir:    cfg.LogDir,
		Logger:    logger,
		Observer: client.ObserverFuncs{
			OnStateChanged: func(from, to models.UserState) {
				logger.WithField("account", account).Debugf("%s -> %s", from, to)
			},
			OnProtocolViolation: func(err error) {
				pterm.Warning.Printfln("%s: %v", account, err)
			},
		},
	})
	defer c.Disconnect(context.Background())

	if err := c.Connect(ctx); err != nil {
		return botResult{account: account, err: err}
	}
	outcomes, err := c.Play(ctx, cfg.Games, cfg.Deck)
	return botResult{account: account, outcomes: outcomes, err: err}
}

func printSummary(results []botResult) {
	data := pterm.TableData{{"Account", "Game", "Opponent", "Result", "Reason"}}
	for _, r := range results {
		if r.err != nil {
			pterm.Error.Printfln("%s: %v", r.account, r.err)
		}
		for _, o := range r.outcomes {
			data = append(data, []string{r.account, strconv.Itoa(o.GameID), o.Opponent, o.PlayState, o.Reason})
		}
	}
	if len(data) == 1 {
		pterm.Warning.Println("no games were played")
		return
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}
