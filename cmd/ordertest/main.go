// ordertest places a single test order and streams its status updates
// to the console until it reaches a terminal state.
// Usage: go run ./cmd/ordertest --config configs/subscriber.local.yaml --symbol AAPL --side BUY --quantity 1
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

	"github.com/shopspring/decimal"

	"github.com/rickgao/publicapi-go/internal/config"
	"github.com/rickgao/publicapi-go/internal/httpauth"
	"github.com/rickgao/publicapi-go/internal/version"
	"github.com/rickgao/publicapi-go/model"
	"github.com/rickgao/publicapi-go/orders"
	"github.com/rickgao/publicapi-go/publicapi"
)

func main() {
	configPath := flag.String("config", "configs/subscriber.local.yaml", "path to config file")
	accountID := flag.String("account", "", "account id to place the order under")
	symbol := flag.String("symbol", "AAPL", "instrument symbol")
	side := flag.String("side", "BUY", "BUY or SELL")
	quantity := flag.String("quantity", "1", "order quantity, decimal string")
	limitPrice := flag.String("limit-price", "", "limit price, decimal string; empty means MARKET")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
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

	req := model.OrderRequest{
		Instrument: model.Instrument{Symbol: *symbol, Type: model.InstrumentTypeEquity, Currency: model.USD},
		Side:       model.OrderSide(*side),
		Quantity:   decimal.RequireFromString(*quantity),
		Expiration: model.OrderExpiration{TimeInForce: model.TimeInForceDay},
	}
	if *limitPrice != "" {
		req.Type = model.OrderTypeLimit
		price := decimal.RequireFromString(*limitPrice)
		req.LimitPrice = &price
	} else {
		req.Type = model.OrderTypeMarket
	}

	logger.Info("placing order", "symbol", *symbol, "side", *side, "quantity", *quantity)
	handle, placed, err := client.PlaceOrder(ctx, *accountID, req)
	if err != nil {
		logger.Error("failed to place order", "error", err)
		os.Exit(1)
	}
	logger.Info("order placed", "order_id", placed.ID, "status", placed.Status)

	if err := handle.SubscribeUpdates(orders.DefaultConfig(), printUpdate); err != nil {
		logger.Error("failed to subscribe to order updates", "error", err)
		os.Exit(1)
	}
	defer handle.Unsubscribe()

	logger.Info("waiting for terminal status - press Ctrl+C to stop")

	final, err := handle.WaitForTerminalStatus(ctx)
	if err != nil {
		logger.Error("wait for terminal status failed", "error", err)
		os.Exit(1)
	}
	logger.Info("order reached terminal status", "status", final.Status, "filled_quantity", final.FilledQuantity)
}

func printUpdate(u orders.OrderUpdate) {
	if u.Err != nil {
		fmt.Printf("[ORDER] subscription error: %v\n", u.Err)
		return
	}
	data, _ := json.Marshal(u.New)
	fmt.Printf("[ORDER] %s\n", data)
}

// loginFunc duplicates cmd/subscriber's login collaborator; the two
// binaries are meant to be copy-pasteable standalone examples, so
// neither imports the other.
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
