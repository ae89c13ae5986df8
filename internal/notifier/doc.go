// Package notifier delivers reminder notifications asynchronously.
//
// Notify only enqueues; a small worker pool drains the queue, waits on a
// token-bucket limiter and sends each notification to every configured sink,
// retrying failed sinks with jittered exponential backoff. A notification
// whose Live guard turns false while it waits is dropped instead of sent.
//
// Lifecycle events (queued, deduped, dropped, cancelled, sent, failed) are
// published on the event bus.
package notifier
