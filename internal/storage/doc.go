// Package storage keeps the fire log: one record per notification delivery
// attempt that reached a final outcome.
//
// Reminders themselves are not stored; they live in memory and in the config
// file.
package storage
