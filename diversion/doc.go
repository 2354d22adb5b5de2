// Package diversion detects sustained deviation of a vehicle from its
// official route polyline.
//
// Every incoming fix is map-matched onto the route. Deviation below the
// GPS drift tolerance counts as on-route; deviation beyond the threshold
// must persist across a minimum number of samples and a minimum duration
// before an alert is raised, which filters GPS noise, tunnels and
// overpasses. Clearing is debounced the same way: the bus must stay
// on-route for the clear duration before the alert resolves. Arriving at
// a designated stop clears an alert immediately.
package diversion
