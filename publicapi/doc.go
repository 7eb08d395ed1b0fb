// Package publicapi is the client facade: it owns the REST transport,
// authentication, and the lifecycles of the quote and order
// subscription managers, and exposes the flat operations (placing and
// cancelling orders, looking up accounts, instruments, and history)
// that sit alongside them.
package publicapi
