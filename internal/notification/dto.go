package notification

import "time"

type NotificationResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	RequestID *string   `json:"request_id"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type NotificationsResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}

func ToResponseSlice(ns []*Notification) NotificationsResponse {
	out := make([]NotificationResponse, 0, len(ns))
	for _, n := range ns {
		out = append(out, NotificationResponse{
			ID:        n.ID,
			Title:     n.Title,
			Content:   n.Content,
			RequestID: n.RequestID,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		})
	}
	return NotificationsResponse{Notifications: out}
}
