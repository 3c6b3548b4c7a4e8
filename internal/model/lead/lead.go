package lead

import "time"

// Lead is the contact payload posted from the chat widget's quote form.
type Lead struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// Status values for stored leads.
const (
	StatusPending = "pending"
)

// Record is a lead as kept by the gateway.
type Record struct {
	Lead
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}
