// Package tracking ties the three detectors together behind one
// FleetTracker service object.
//
// The tracker owns all per-vehicle analysis state, routes each incoming
// GPS fix through diversion, traffic and delay detection, and releases a
// vehicle's state when its trip ends. Construct one tracker per process;
// tests build isolated trackers per scenario.
package tracking
