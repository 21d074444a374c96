package model

import "time"

// ServiceRequest is a freeform customer inquiry (styling, consultation,
// custom order). It is independent of the order graph.
type ServiceRequest struct {
	ID          uint64    `json:"id"`
	UserID      *uint64   `json:"userId,omitempty"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	RequestType string    `json:"requestType"`
	Message     string    `json:"message"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

const (
	ServiceRequestPending    = "pending"
	ServiceRequestInProgress = "in_progress"
	ServiceRequestCompleted  = "completed"
	ServiceRequestCancelled  = "cancelled"
)

// ValidServiceRequestStatus reports whether s is a known status.
func ValidServiceRequestStatus(s string) bool {
	switch s {
	case ServiceRequestPending, ServiceRequestInProgress, ServiceRequestCompleted, ServiceRequestCancelled:
		return true
	}
	return false
}
