// Package delay detects schedule delays by comparing a trip's actual
// route progress, derived from GPS, against the progress its schedule
// window implies for the current time of day.
//
// The delay estimate is the progress gap scaled by the route's estimated
// duration. HIGH delays are pushed to a NotificationSink, deduplicated per
// (bus, schedule) within a cooldown window. There is no clear transition:
// a delay record stands until the schedule window passes.
package delay
