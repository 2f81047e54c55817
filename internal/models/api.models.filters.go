package models

// LabelFilters are the query parameters of the label distribution route
type LabelFilters struct {
	Top int `schema:"top"`
}

// LimitFilters are the query parameters of the list routes
type LimitFilters struct {
	Limit int `schema:"limit"`
}
