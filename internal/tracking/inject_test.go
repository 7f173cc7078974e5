package tracking

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func fixedInjector() *Injector {
	inj := NewInjector("https://track.example.com/")
	inj.now = func() time.Time { return time.Unix(1700000000, 0) }
	return inj
}

func TestInject_RewritesLinksAndAddsBeacon(t *testing.T) {
	inj := fixedInjector()
	body := `<html><body><a href='http://x.com'>go</a></body></html>`

	out := inj.Inject(body, 42, 7, "op-1")

	token := EncodeToken(42, 7, "op-1", time.Unix(1700000000, 0))
	wantHref := fmt.Sprintf("https://track.example.com%s?token=%s&url=http%%3A%%2F%%2Fx.com", ClickPath, token)
	if !strings.Contains(out, "href='"+wantHref+"'") {
		t.Fatalf("href not rewritten:\n%s", out)
	}
	if strings.Contains(out, "href='http://x.com'") {
		t.Fatal("original target survived the rewrite")
	}

	beaconIdx := strings.Index(out, OpenPath)
	bodyIdx := strings.Index(out, "</body>")
	if beaconIdx < 0 {
		t.Fatal("open beacon missing")
	}
	if bodyIdx < 0 || beaconIdx > bodyIdx {
		t.Fatal("beacon must sit before the closing body tag")
	}
}

func TestInject_IsDeterministic(t *testing.T) {
	inj := fixedInjector()
	body := `<body><a href="https://a.example">a</a><p>hi</p></body>`

	first := inj.Inject(body, 1, 2, "s")
	second := inj.Inject(body, 1, 2, "s")
	if first != second {
		t.Fatal("same input produced different output")
	}
}

func TestInject_SkipsOptOutAndNativeLinks(t *testing.T) {
	inj := fixedInjector()
	body := `<body>` +
		`<a href="mailto:help@x.com">mail</a>` +
		`<a href="tel:+490000">call</a>` +
		`<a href="#top">top</a>` +
		`<a href="https://x.com/Unsubscribe?u=1">opt out</a>` +
		`<a href="https://x.com/page">page</a>` +
		`</body>`

	out := inj.Inject(body, 1, 2, "s")

	for _, keep := range []string{
		`href="mailto:help@x.com"`,
		`href="tel:+490000"`,
		`href="#top"`,
		`href="https://x.com/Unsubscribe?u=1"`,
	} {
		if !strings.Contains(out, keep) {
			t.Errorf("protected link rewritten: %s", keep)
		}
	}
	if strings.Contains(out, `href="https://x.com/page"`) {
		t.Error("ordinary link left untouched")
	}
	if strings.Count(out, ClickPath) != 1 {
		t.Errorf("want exactly one rewritten link, got %d", strings.Count(out, ClickPath))
	}
}

func TestInject_AppendsBeaconWithoutBodyTag(t *testing.T) {
	inj := fixedInjector()
	body := `<p>plain fragment, no body tag`

	out := inj.Inject(body, 1, 2, "s")

	if !strings.HasPrefix(out, body) {
		t.Fatal("fragment content altered")
	}
	if !strings.Contains(out[len(body):], OpenPath) {
		t.Fatal("beacon not appended to malformed markup")
	}
}

func TestInject_HandlesUppercaseBodyTag(t *testing.T) {
	inj := fixedInjector()
	out := inj.Inject(`<BODY>hi</BODY>`, 1, 2, "s")

	idx := strings.Index(out, OpenPath)
	end := strings.Index(out, "</BODY>")
	if idx < 0 || end < 0 || idx > end {
		t.Fatalf("beacon not placed before uppercase closing tag:\n%s", out)
	}
}
