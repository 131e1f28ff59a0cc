package service

import (
	"time"

	"reqdesk/internal/model"
)

// UserView is what callers see of a user. The retired flag is never exposed.
type UserView struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	CivilID    string     `json:"civilId"`
	ExpiryDate model.Date `json:"expiryDate" swaggertype:"string" example:"2030-12-31"`
}

// RequestView is a request with its owner inlined and attachments reduced to ids.
type RequestView struct {
	ID            int64     `json:"id"`
	RequestName   string    `json:"requestName"`
	StatusID      int64     `json:"statusId"`
	Status        string    `json:"status"`
	Owner         UserView  `json:"owner"`
	AttachmentIDs []int64   `json:"attachmentIds"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func toUserView(u *model.User) UserView {
	return UserView{ID: u.ID, Name: u.Name, CivilID: u.CivilID, ExpiryDate: u.ExpiryDate}
}

func toRequestView(r *model.Request, owner *model.User) RequestView {
	return RequestView{
		ID:            r.ID,
		RequestName:   r.RequestName,
		StatusID:      r.Status.ID,
		Status:        r.Status.Name.String(),
		Owner:         toUserView(owner),
		AttachmentIDs: r.AttachmentIDs(),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}
