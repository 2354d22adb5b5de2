// Package eta estimates arrival times at stops from blended live and
// average route speeds, without per-stop timing data.
package eta
