package models

type Location struct {
	ID        int64
	Name      string
	Latitude  float64
	Longitude float64
	Active    bool
}

type Coordinates struct {
	Latitude  float64
	Longitude float64
}

func (l *Location) Coordinates() Coordinates {
	return Coordinates{
		Latitude:  l.Latitude,
		Longitude: l.Longitude,
	}
}
