package eventlog

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/publicapi-go/orders"
)

type orderRow struct {
	subscriptionID string
	accountID      string
	orderID        string
	status         string
	filledQuantity string
	averagePrice   string
	at             int64
}

func toOrderRow(ev orders.OrderUpdate) orderRow {
	row := orderRow{
		subscriptionID: ev.SubscriptionID,
		accountID:      ev.Key.AccountID,
		orderID:        ev.Key.OrderID,
		status:         string(ev.New.Status),
		filledQuantity: ev.New.FilledQuantity.String(),
		at:             ev.At.UnixMicro(),
	}
	if ev.New.AveragePrice != nil {
		row.averagePrice = ev.New.AveragePrice.String()
	}
	return row
}

func insertOrderRows(ctx context.Context, db *pgxpool.Pool, rows []orderRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO order_events (subscription_id, account_id, order_id, status, filled_quantity, average_price, observed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (subscription_id, observed_at) DO NOTHING
		`, r.subscriptionID, r.accountID, r.orderID, r.status, r.filledQuantity, r.averagePrice, r.at)
	}

	results := db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}
	return conflicts, nil
}

// OrderWriter is the event log for OrderUpdate events.
type OrderWriter struct {
	inner *Writer[orderRow]
}

// NewOrderWriter builds an OrderWriter backed by db.
func NewOrderWriter(cfg WriterConfig, db *pgxpool.Pool, logger *slog.Logger) *OrderWriter {
	return &OrderWriter{inner: NewWriter(cfg, db, insertOrderRows, logger)}
}

func (w *OrderWriter) Start(ctx context.Context) { w.inner.Start(ctx) }
func (w *OrderWriter) Stop(ctx context.Context)  { w.inner.Stop(ctx) }
func (w *OrderWriter) Stats() WriterMetrics      { return w.inner.Stats() }

// Record enqueues ev for writing. It is intended to be passed
// directly as (or wrapped by) an orders.Manager subscription
// callback.
func (w *OrderWriter) Record(ev orders.OrderUpdate) {
	w.inner.Record(toOrderRow(ev))
}
