// Package resource bounds the resources shared by a generation run or a
// dataset pass: worker slots, trial dispatch rate, in-memory bundle bytes and
// matrix read throughput.
//
// A nil *Controller imposes no limits on memory. Worker slots are always
// bounded.
package resource
