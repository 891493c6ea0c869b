// Package generator drives the external matrix-pair generator and records
// its output in a manifest.
//
// A Coordinator runs a fixed number of independent trials on a bounded
// worker pool. Each trial samples its own Params from a Sampler, calls the
// Generator, and reports back to a single collector goroutine, which is the
// only place results are recorded. Trials fail in isolation: a failed trial
// is counted and logged, and the run continues. When all trials have
// finished the manifest is written once, with entries sorted by name. A
// canceled run writes nothing.
//
// The generator itself is an external collaborator. Command adapts an
// executable that prints one JSON Result on stdout; GeneratorFunc adapts a
// plain function.
package generator
