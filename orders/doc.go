// Package orders is the Order Subscription Manager: it subscribes to
// status updates for a set of orders, polling an OrderFetcher on a
// fixed interval and delivering an OrderUpdate whenever a watched
// order's status, filled quantity, or average price changes. A
// subscription watching an order is cancelled automatically once the
// order reaches a terminal status.
//
// Handle is a convenience wrapper around a single order: it bundles
// status lookups, cancellation, update subscriptions, and blocking
// waits for a target status into one value keyed by account and order
// id.
//
// Like quotes, it is a thin, order-shaped view over the generic
// polling engine in package subscription.
package orders
