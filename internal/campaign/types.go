package campaign

import "time"

const (
	StatusDraft   = "draft"
	StatusSending = "sending"
	StatusSent    = "sent"
)

type Campaign struct {
	ID        int64
	Name      string
	Subject   string
	Body      string
	Status    string
	SentAt    *time.Time
	CreatedAt time.Time
}

type Recipient struct {
	ContactID int64             `json:"contact_id" binding:"required"`
	Email     string            `json:"email"      binding:"required,email"`
	Fields    map[string]string `json:"fields"`
}

type CreateCampaignReq struct {
	Name       string      `json:"name"       binding:"required"`
	Subject    string      `json:"subject"    binding:"required"`
	Body       string      `json:"body"       binding:"required"`
	Priority   int         `json:"priority"`
	Recipients []Recipient `json:"recipients" binding:"required,min=1,dive"`
}

type CreateCampaignResp struct {
	ID        int64 `json:"id"`
	ItemCount int   `json:"item_count"`
}

type CampaignDetails struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Subject   string     `json:"subject"`
	Status    string     `json:"status"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	Stats     struct {
		Pending    int `json:"pending"`
		Processing int `json:"processing"`
		Sent       int `json:"sent"`
		Failed     int `json:"failed"`
	} `json:"stats"`
}

type CampaignListItem struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Status    string     `json:"status"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
