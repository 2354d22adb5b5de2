// Package gtfsrt ingests GTFS-Realtime VehiclePositions feeds and turns
// them into per-bus GPS samples for the detectors.
//
// The Feed type fetches and decodes the protobuf feed, discards stale and
// out-of-order fixes, and yields one Fix per vehicle that moved since the
// previous refresh.
package gtfsrt
