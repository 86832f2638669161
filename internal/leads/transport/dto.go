package transport

// CreateLeadRequest is the body of POST /leads.
type CreateLeadRequest struct {
	Name   string  `json:"name" validate:"required,notblank,max=120"`
	Phone  string  `json:"phone" validate:"required,min=5,max=32"`
	Email  *string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Source *string `json:"source,omitempty" validate:"omitempty,max=80"`
}
