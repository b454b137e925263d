package dto

// SubmitRequestPayload files a shift-change request over an allocation.
type SubmitRequestPayload struct {
	ShiftID     int64   `json:"shift_id" validate:"required"`
	Reason      string  `json:"reason" validate:"required,min=3"`
	Replacement *string `json:"replacement,omitempty"`
}

// ResolveRequestPayload approves or rejects a pending request.
type ResolveRequestPayload struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note,omitempty"`
}
