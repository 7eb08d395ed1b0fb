package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rickgao/publicapi-go/internal/config"
	"github.com/rickgao/publicapi-go/internal/httpauth"
	"github.com/rickgao/publicapi-go/internal/version"
	"github.com/rickgao/publicapi-go/model"
	"github.com/rickgao/publicapi-go/publicapi"
	"github.com/rickgao/publicapi-go/quotes"
)

func main() {
	configPath := flag.String("config", "configs/subscriber.local.yaml", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting subscriber", "config", *configPath, "version", version.String())

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"api_url", cfg.API.RestURL,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	client, err := publicapi.New(ctx, cfg, loginFunc(cfg), publicapi.WithLogger(logger))
	if err != nil {
		logger.Error("failed to build client", "error", err)
		os.Exit(1)
	}

	if err := client.Start(ctx); err != nil {
		logger.Error("failed to start client", "error", err)
		os.Exit(1)
	}
	defer client.Stop()

	watchedSymbols := watchlist()
	instruments := make([]model.Instrument, len(watchedSymbols))
	for i, sym := range watchedSymbols {
		instruments[i] = model.Instrument{Symbol: sym, Type: model.InstrumentTypeEquity, Currency: model.USD}
	}

	subID, err := client.SubscribePrices(instruments, quotes.DefaultConfig(), func(pc quotes.PriceChange) {
		if pc.Err != nil {
			logger.Warn("price subscription moved to error", "instrument", pc.Instrument.Symbol, "error", pc.Err)
			return
		}
		logger.Info("price change",
			"instrument", pc.Instrument.Symbol,
			"new_last", pc.New.Last,
		)
	})
	if err != nil {
		logger.Error("failed to subscribe to prices", "error", err)
		os.Exit(1)
	}
	logger.Info("watching instruments", "count", len(instruments), "subscription_id", subID)

	healthPort := 8080
	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", healthPort),
		Handler: createHealthHandler(client),
	}
	go func() {
		logger.Info("starting health server", "port", healthPort)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	logger.Info("subscriber running", "health_url", fmt.Sprintf("http://localhost:%d/health", healthPort))

	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	healthServer.Shutdown(shutdownCtx)

	logger.Info("subscriber stopped")
}

// watchlist is the set of equity symbols this example CLI watches.
// A real deployment would read this from config or a flag; it's
// hardcoded here to keep the example self-contained.
func watchlist() []string {
	return []string{"AAPL", "MSFT", "GOOGL"}
}

// loginFunc builds the signed-login collaborator publicapi.New needs:
// it POSTs a request signed with cfg's credentials to the broker's
// session endpoint and parses back a bearer token and its lifetime.
func loginFunc(cfg *config.Config) httpauth.LoginFunc {
	return func(ctx context.Context) (string, time.Duration, error) {
		creds, err := httpauth.LoadCredentials(cfg.API.APIKey, cfg.API.PrivateKeyPath)
		if err != nil {
			return "", 0, err
		}
		headers, err := creds.SignRequest(http.MethodPost, cfg.API.LoginPath)
		if err != nil {
			return "", 0, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.API.RestURL+cfg.API.LoginPath, nil)
		if err != nil {
			return "", 0, err
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := (&http.Client{Timeout: cfg.API.Timeout}).Do(req)
		if err != nil {
			return "", 0, fmt.Errorf("login request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return "", 0, fmt.Errorf("login failed: status %d", resp.StatusCode)
		}

		var body struct {
			Token     string `json:"token"`
			ExpiresIn int    `json:"expires_in"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return "", 0, fmt.Errorf("decode login response: %w", err)
		}
		return body.Token, time.Duration(body.ExpiresIn) * time.Second, nil
	}
}

func createHealthHandler(client *publicapi.Client) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		health := struct {
			Status          string `json:"status"`
			ActivePriceSubs int    `json:"active_price_subscriptions"`
			ActiveOrderSubs int    `json:"active_order_subscriptions"`
		}{
			Status:          "healthy",
			ActivePriceSubs: len(client.PriceStream().GetActiveSubscriptions()),
			ActiveOrderSubs: len(client.OrderStream().GetActiveSubscriptions()),
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(health)
	})

	return mux
}
