package publicapi

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/publicapi-go/internal/config"
	"github.com/rickgao/publicapi-go/internal/eventlog"
	"github.com/rickgao/publicapi-go/internal/httpauth"
	"github.com/rickgao/publicapi-go/internal/httpclient"
	"github.com/rickgao/publicapi-go/model"
	"github.com/rickgao/publicapi-go/orders"
	"github.com/rickgao/publicapi-go/quotes"
)

// subscriptionRetryBackoff is the base backoff between retried REST
// requests, separate from the subscription engine's own poll-failure
// backoff.
const subscriptionRetryBackoff = 500 * time.Millisecond

// Client is the entry point into the broker's API: place and manage
// orders, look up accounts and instruments, and subscribe to live
// price and order updates.
type Client struct {
	http *httpclient.Client
	auth *httpauth.Manager
	log  *slog.Logger

	quoteMgr *quotes.Manager
	orderMgr *orders.Manager
	orderAPI *restOrderFetcher

	priceLog *eventlog.PriceWriter
	orderLog *eventlog.OrderWriter
}

// New builds a Client from a loaded Config. login exchanges signed
// credentials for a session token; see httpauth.LoginFunc. If
// cfg.EventLog.Enabled, New also opens the audit-trail database
// connection, so it takes ctx (unlike the rest of Client's otherwise
// connection-free construction).
func New(ctx context.Context, cfg *config.Config, login httpauth.LoginFunc, opts ...Option) (*Client, error) {
	creds, err := httpauth.LoadCredentials(cfg.API.APIKey, cfg.API.PrivateKeyPath)
	if err != nil {
		return nil, err
	}

	o := options{log: slog.Default()}
	for _, apply := range opts {
		apply(&o)
	}

	authMgr := httpauth.NewManager(creds, login)
	httpOpts := []httpclient.Option{
		httpclient.WithTimeout(cfg.API.Timeout),
		httpclient.WithRetries(cfg.API.MaxRetries, subscriptionRetryBackoff),
		httpclient.WithLogger(o.log),
	}
	httpCli := httpclient.NewClient(cfg.API.RestURL, authMgr, httpOpts...)

	orderAPI := &restOrderFetcher{http: httpCli}
	c := &Client{http: httpCli, auth: authMgr, log: o.log, orderAPI: orderAPI}

	c.quoteMgr = quotes.NewManager(
		&restQuoteFetcher{http: httpCli},
		quotes.WithLogger(o.log),
	)
	c.orderMgr = orders.NewManager(
		orderAPI,
		orderAPI,
		orders.WithLogger(o.log),
		orders.WithAuthRefresher(authMgr),
	)

	if cfg.EventLog.Enabled {
		db, err := eventlog.Connect(ctx, cfg.EventLog.DB)
		if err != nil {
			return nil, fmt.Errorf("publicapi: connect event log: %w", err)
		}
		wcfg := eventlog.WriterConfig{
			BatchSize:     cfg.EventLog.BatchSize,
			FlushInterval: cfg.EventLog.FlushInterval,
			BufferSize:    cfg.EventLog.BufferSize,
		}
		c.priceLog = eventlog.NewPriceWriter(wcfg, db, o.log)
		c.orderLog = eventlog.NewOrderWriter(wcfg, db, o.log)
	}

	return c, nil
}

// Option configures a Client at construction time.
type Option func(*options)

type options struct {
	log *slog.Logger
}

// WithLogger sets the logger used by the client and its subscription
// managers.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.log = log }
}

// Start begins the price and order subscription managers' poll loops,
// along with the event log writers if configured.
func (c *Client) Start(ctx context.Context) error {
	if err := c.quoteMgr.Start(ctx); err != nil {
		return err
	}
	if err := c.orderMgr.Start(ctx); err != nil {
		return err
	}
	if c.priceLog != nil {
		c.priceLog.Start(ctx)
	}
	if c.orderLog != nil {
		c.orderLog.Start(ctx)
	}
	return nil
}

// Stop halts both subscription managers, flushes the event log
// writers if configured, and revokes the cached session token so nothing
// signs further requests with it.
func (c *Client) Stop() {
	c.quoteMgr.Stop()
	c.orderMgr.Stop()
	if c.priceLog != nil {
		c.priceLog.Stop(context.Background())
	}
	if c.orderLog != nil {
		c.orderLog.Stop(context.Background())
	}
	c.auth.Revoke(context.Background())
}

// PriceStream returns the Price Subscription Manager.
func (c *Client) PriceStream() *quotes.Manager { return c.quoteMgr }

// OrderStream returns the Order Subscription Manager.
func (c *Client) OrderStream() *orders.Manager { return c.orderMgr }

// SubscribePrices is quotes.Manager.Subscribe, additionally mirroring
// every delivered PriceChange into the event log when one is
// configured.
func (c *Client) SubscribePrices(instruments []model.Instrument, cfg quotes.Config, onChange func(quotes.PriceChange)) (string, error) {
	return c.quoteMgr.Subscribe(instruments, cfg, c.tapPriceChange(onChange))
}

// SubscribeOrders is orders.Manager.Subscribe, additionally mirroring
// every delivered OrderUpdate into the event log when one is
// configured.
func (c *Client) SubscribeOrders(keys []orders.OrderKey, cfg orders.Config, onUpdate func(orders.OrderUpdate)) (string, error) {
	return c.orderMgr.Subscribe(keys, cfg, c.tapOrderUpdate(onUpdate))
}

func (c *Client) tapPriceChange(onChange func(quotes.PriceChange)) func(quotes.PriceChange) {
	if c.priceLog == nil {
		return onChange
	}
	return func(pc quotes.PriceChange) {
		c.priceLog.Record(pc)
		onChange(pc)
	}
}

func (c *Client) tapOrderUpdate(onUpdate func(orders.OrderUpdate)) func(orders.OrderUpdate) {
	if c.orderLog == nil {
		return onUpdate
	}
	return func(ou orders.OrderUpdate) {
		c.orderLog.Record(ou)
		onUpdate(ou)
	}
}
