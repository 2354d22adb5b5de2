// Package geo is the geometry kernel shared by all detectors: haversine
// distances, point-to-segment projection, route polylines and map
// matching. All functions are pure.
package geo
