// Package traffic detects congestion segments from bus speed history.
//
// Average speed over a short detection window is classified into LOW,
// MEDIUM or HIGH severity by three speed ceilings. Alerts are keyed by
// (bus, route segment) and clear only after speed stays normal for the
// clear duration. Dwell within the stop radius is excluded so boarding
// never reads as congestion.
package traffic
