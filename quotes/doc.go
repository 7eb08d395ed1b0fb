// Package quotes is the Price Subscription Manager: it subscribes to
// quote updates for a set of instruments, polling a QuoteFetcher on a
// fixed interval and delivering a PriceChange event to subscribers
// whenever a watched instrument's last, bid, bid size, ask, or ask
// size changes.
//
// It is a thin, instrument-shaped view over the generic polling engine
// in package subscription; all of the scheduling, retry, and delivery
// machinery lives there.
package quotes
