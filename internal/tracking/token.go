package tracking

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// Token attributes an open/click back to a campaign, contact and sender. It
// is deliberately not signed: attribution, not authorization.
type Token struct {
	CampaignID int64  `json:"c"`
	ContactID  int64  `json:"ct"`
	SenderID   string `json:"s"`
	IssuedAt   int64  `json:"ts"`
}

func EncodeToken(campaignID, contactID int64, senderID string, issuedAt time.Time) string {
	raw, _ := json.Marshal(Token{
		CampaignID: campaignID,
		ContactID:  contactID,
		SenderID:   senderID,
		IssuedAt:   issuedAt.Unix(),
	})
	return base64.RawURLEncoding.EncodeToString(raw)
}

func DecodeToken(s string) (Token, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Token{}, fmt.Errorf("decode token: %w", err)
	}
	var t Token
	if err := json.Unmarshal(raw, &t); err != nil {
		return Token{}, fmt.Errorf("decode token: %w", err)
	}
	if t.CampaignID == 0 || t.ContactID == 0 {
		return Token{}, fmt.Errorf("decode token: missing attribution ids")
	}
	return t, nil
}
