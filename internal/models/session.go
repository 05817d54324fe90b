package models

// Session is the composite view of one collage for a requesting user
type Session struct {
	Collage *Collage `json:"collage"`
	Creator *User    `json:"creator"`
	Members []*User  `json:"members"`
	Photos  []*Photo `json:"photos"`
	Expired bool     `json:"expired"`
}

// Partition splits a user's collages at a single instant
type Partition struct {
	Active  []*Collage `json:"active"`
	Expired []*Collage `json:"expired"`
}
