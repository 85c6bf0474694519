package models

// Topic is a named subject inside a domain that questions belong to
type Topic struct {
	ID     int64  `json:"id" db:"id"`
	Domain string `json:"domain" db:"domain"`
	Name   string `json:"name" db:"name"`
}
