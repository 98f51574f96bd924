package models

import "time"

// Guide is generated trip guide content for a completed flow.
type Guide struct {
	ID          string
	FlowType    FlowType
	Content     string
	Tags        TagSet
	GeneratedAt time.Time
}
