package dto

type CreateSupplierRequest struct {
	Name  string  `json:"name"   validate:"required,min=2,max=200"`
	TaxID *string `json:"tax_id" validate:"omitempty,min=5,max=32"`
	Phone *string `json:"phone"`
	Email *string `json:"email" validate:"omitempty,email"`
}

type UpdateSupplierRequest struct {
	Name  *string `json:"name"   validate:"omitempty,min=2,max=200"`
	Phone *string `json:"phone"`
	Email *string `json:"email" validate:"omitempty,email"`
}

type SupplierResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	TaxID     *string `json:"tax_id,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Email     *string `json:"email,omitempty"`
	Active    bool    `json:"active"`
	CreatedAt string  `json:"created_at"`
}
