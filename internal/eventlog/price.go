package eventlog

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/publicapi-go/quotes"
)

type priceRow struct {
	subscriptionID string
	symbol         string
	last           string
	bid            string
	ask            string
	at             int64
}

func toPriceRow(ev quotes.PriceChange) priceRow {
	row := priceRow{
		subscriptionID: ev.SubscriptionID,
		symbol:         ev.Instrument.Symbol,
		at:             ev.At.UnixMicro(),
	}
	if ev.New.Last != nil {
		row.last = ev.New.Last.String()
	}
	if ev.New.Bid != nil {
		row.bid = ev.New.Bid.String()
	}
	if ev.New.Ask != nil {
		row.ask = ev.New.Ask.String()
	}
	return row
}

func insertPriceRows(ctx context.Context, db *pgxpool.Pool, rows []priceRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO price_events (subscription_id, symbol, last, bid, ask, observed_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (subscription_id, observed_at) DO NOTHING
		`, r.subscriptionID, r.symbol, r.last, r.bid, r.ask, r.at)
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

// PriceWriter is the event log for PriceChange events.
type PriceWriter struct {
	inner *Writer[priceRow]
}

// NewPriceWriter builds a PriceWriter backed by db.
func NewPriceWriter(cfg WriterConfig, db *pgxpool.Pool, logger *slog.Logger) *PriceWriter {
	return &PriceWriter{inner: NewWriter(cfg, db, insertPriceRows, logger)}
}

func (w *PriceWriter) Start(ctx context.Context) { w.inner.Start(ctx) }
func (w *PriceWriter) Stop(ctx context.Context)  { w.inner.Stop(ctx) }
func (w *PriceWriter) Stats() WriterMetrics      { return w.inner.Stats() }

// Record enqueues ev for writing. It is intended to be passed
// directly as (or wrapped by) a quotes.Manager subscription callback.
func (w *PriceWriter) Record(ev quotes.PriceChange) {
	w.inner.Record(toPriceRow(ev))
}
