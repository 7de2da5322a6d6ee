package models

// Technician is one field technician from the dispatch roster. A persisted
// Technician doubles as the logged-in session record.
type Technician struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
	Zone     string `json:"zone"`
	IsActive bool   `json:"isActive"`
}

// Location is a geographic position, optionally annotated with a street
// address.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
}
