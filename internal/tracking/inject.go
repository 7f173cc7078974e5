package tracking

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	ClickPath = "/t/click"
	OpenPath  = "/t/open.gif"
)

var hrefRe = regexp.MustCompile(`(?i)(href\s*=\s*)(["'])([^"']*)(["'])`)

// Injector rewrites message bodies for open/click tracking before dispatch.
type Injector struct {
	BaseURL string
	now     func() time.Time
}

func NewInjector(baseURL string) *Injector {
	return &Injector{BaseURL: strings.TrimRight(baseURL, "/"), now: time.Now}
}

// Inject rewrites every anchor target to the click-redirect endpoint and
// appends a 1x1 open beacon. Opt-out and native-app links (mailto:, tel:,
// fragment anchors, anything mentioning unsubscribe) pass through untouched.
// Malformed markup never fails: with no closing body tag the beacon is simply
// appended.
func (i *Injector) Inject(body string, campaignID, contactID int64, senderID string) string {
	token := EncodeToken(campaignID, contactID, senderID, i.now())

	out := hrefRe.ReplaceAllStringFunc(body, func(m string) string {
		parts := hrefRe.FindStringSubmatch(m)
		target := parts[3]
		if skipRewrite(target) {
			return m
		}
		redirect := fmt.Sprintf("%s%s?token=%s&url=%s", i.BaseURL, ClickPath, token, url.QueryEscape(target))
		return parts[1] + parts[2] + redirect + parts[4]
	})

	beacon := fmt.Sprintf(`<img src="%s%s?token=%s" width="1" height="1" style="display:none;" alt=""/>`,
		i.BaseURL, OpenPath, token)

	if idx := strings.LastIndex(strings.ToLower(out), "</body>"); idx >= 0 {
		return out[:idx] + beacon + out[idx:]
	}
	return out + beacon
}

func skipRewrite(target string) bool {
	t := strings.ToLower(strings.TrimSpace(target))
	return strings.HasPrefix(t, "mailto:") ||
		strings.HasPrefix(t, "tel:") ||
		strings.HasPrefix(t, "#") ||
		strings.Contains(t, "unsubscribe")
}
