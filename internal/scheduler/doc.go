// Package scheduler drives reminder evaluation.
//
// A cron tick source (cron.Every) calls Registry.Evaluate at a fixed cadence.
// Fires are turned into notifications by a Dispatcher and handed to the
// notifier without waiting for delivery, so a slow or failing sink never
// delays the next tick.
package scheduler
