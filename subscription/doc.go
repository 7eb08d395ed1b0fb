// Package subscription implements the polling subscription engine
// shared by the price and order subscription managers: a registry of
// subscriptions keyed by subject, a single background poll scheduler
// per manager that batches subjects into one fetch per tick, and a
// bounded dispatcher that delivers change events to subscriber
// callbacks without letting a slow or buggy callback stall the loop.
//
// The engine is written once, generically, over a comparable subject
// type S and an observation type O (Manager[S, O]); the price and
// order managers in the quotes and orders packages are two
// instantiations of it rather than two independent implementations.
package subscription
