package dto

// AvailabilityQuery asks whether one staff member can work a slot.
type AvailabilityQuery struct {
	Username string `json:"username" validate:"required"`
	Day      string `json:"day" validate:"required"`
	Time     string `json:"time" validate:"required"`
}

// BatchAvailabilityRequest evaluates many queries in one call.
type BatchAvailabilityRequest struct {
	Kind    string              `json:"kind" validate:"required,oneof=helpdesk lab"`
	Queries []AvailabilityQuery `json:"queries" validate:"required,min=1,max=256,dive"`
}

// AvailabilityResult is one batch answer.
type AvailabilityResult struct {
	Username    string `json:"username"`
	Day         string `json:"day"`
	Time        string `json:"time"`
	IsAvailable bool   `json:"is_available"`
}

// AvailabilityCheck is the single-staff answer. AlreadyAllocated is
// informational: it flags an existing allocation on the primary
// schedule at that day/hour without making the slot unavailable.
type AvailabilityCheck struct {
	IsAvailable      bool   `json:"is_available"`
	AlreadyAllocated bool   `json:"already_allocated"`
	MatchedWindow    string `json:"matched_window,omitempty"`
}

// AvailabilityWindowRequest is a volunteer self-service window edit.
type AvailabilityWindowRequest struct {
	Day   string `json:"day" validate:"required"`
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
}
