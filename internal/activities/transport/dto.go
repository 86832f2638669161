package transport

// ListActivitiesQuery is the query string of GET /activities.
type ListActivitiesQuery struct {
	Limit int `form:"limit" validate:"min=0"`
}
