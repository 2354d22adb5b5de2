// Package store is the in-memory route/schedule/trip reference store the
// engine reads from. Reference data is loaded once from a yaml file and
// validated at the boundary; live trip positions are updated by whatever
// transport delivers GPS fixes.
package store
