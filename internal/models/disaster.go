package models

// Disaster is a hazard type managed by operators (e.g. "Flash Flood", "Earthquake").
type Disaster struct {
	ID     int64
	Name   string
	Active bool
}
