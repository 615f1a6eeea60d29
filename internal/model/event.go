package model

import "time"

// Event represents a scheduled meetup.
//
// ID is a generated UUID string. HostEmail references the user who created
// the event; the host is always attending their own event (the create
// operation inserts the host's RSVP in the same transaction).
type Event struct {
	ID          string    `json:"event_id"`
	Name        string    `json:"event_name"`
	EventTime   time.Time `json:"event_time"`
	Location    string    `json:"location"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Description string    `json:"description"`
	HostEmail   string    `json:"host_email"`
	CreatedAt   time.Time `json:"-"`
}

// EventSummary is one row of the home feed: an event within the caller's
// radius, annotated with the host's display name, the live RSVP count, and
// the great-circle distance from the caller's saved location in meters.
// Events with zero RSVPs still appear with Count 0.
type EventSummary struct {
	Event
	HostName  string  `json:"host_name"`
	RSVPCount int64   `json:"rsvp_count"`
	DistanceM float64 `json:"distance"`
}
