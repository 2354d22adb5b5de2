// Package transit defines the value types shared by the route adherence
// detectors: routes with their stops, schedules, live trips and GPS samples.
//
// These records are snapshots of data owned by the external store. The
// engine only reads them; validation happens once at the boundary where
// the store hands them over.
package transit
