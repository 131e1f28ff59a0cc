package model

import "time"

// Request is a lifecycle governed submission owned by exactly one User.
type Request struct {
	ID          int64        `json:"id"`
	RequestName string       `json:"requestName"`
	Status      Status       `json:"status"`
	OwnerID     int64        `json:"ownerId"`
	Attachments []Attachment `json:"attachments"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// AttachmentIDs lists the ids of the request's attachments in order.
func (r *Request) AttachmentIDs() []int64 {
	ids := make([]int64, 0, len(r.Attachments))
	for _, a := range r.Attachments {
		ids = append(ids, a.ID)
	}
	return ids
}
