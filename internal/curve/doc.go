// Package curve implements the bonding-curve engine of a token launchpad.
//
// Each token trades against a virtual constant-product curve until its
// effective SOL reserves reach the graduation threshold. The engine prices
// trades with 256-bit intermediates, splits fees into platform, creator and
// auxiliary buckets, and hands value movement to an external Ledger that
// applies each trade's transfers atomically. Curve state is committed only
// after the ledger accepts the batch.
package curve
