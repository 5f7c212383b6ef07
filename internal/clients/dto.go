package clients

// CreateClientRequest is the body of POST /clients.
type CreateClientRequest struct {
	Name    string  `json:"name" validate:"required,max=200"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Company *string `json:"company,omitempty" validate:"omitempty,max=200"`
	Address *string `json:"address,omitempty"`
	Notes   *string `json:"notes,omitempty"`
}

// UpdateClientRequest is the body of PUT /clients/{id}.
type UpdateClientRequest struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Company *string `json:"company,omitempty" validate:"omitempty,max=200"`
	Address *string `json:"address,omitempty"`
	Notes   *string `json:"notes,omitempty"`
}

// ListClientsRequest captures the GET /clients filters.
type ListClientsRequest struct {
	Search *string
	Limit  int
	Offset int
}
