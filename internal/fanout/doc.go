// Package fanout broadcasts framed messages from in-process producers to every
// observer connected on a local Unix socket.
//
// A Channel owns one socket, one ordered connection registry and one unbounded
// publish queue, and runs two goroutines:
//
//   - the accept loop appends each inbound connection to the registry;
//   - the dispatcher pops messages in enqueue order, encodes each once, writes
//     the frame to every registered connection and drops connections whose
//     write fails.
//
// Publish never performs I/O, so a slow or dead observer cannot stall the
// producer. Delivery is best-effort and at-most-once per connection: there is
// no retry, no acknowledgement and no replay for late joiners. A connection
// accepted between messages k and k+1 receives k+1 onward.
//
// In FanoutLocked mode the registry gate is held across the whole fan-out of one
// message, so a hung observer also delays registration of new connections. In
// FanoutSnapshot mode the dispatcher writes outside the gate and merges the
// survivors back ahead of connections accepted meanwhile.
package fanout
