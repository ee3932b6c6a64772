package dto

// CreatePaymentRequest records a tuition payment against an application.
type CreatePaymentRequest struct {
	ApplicationID string  `json:"applicationId" validate:"required,uuid4"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	Currency      string  `json:"currency" validate:"required,len=3,alpha"`
	Reference     string  `json:"reference" validate:"required,max=120"`
}

// UpdatePaymentStatusRequest moves a payment between states.
type UpdatePaymentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=PENDING CONFIRMED REFUNDED"`
}
