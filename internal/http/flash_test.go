package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFlashesEncodeDecode(t *testing.T) {
	var in Flashes
	in.Success("%d cég sikeresen importálva!", 3)
	in.Warning("Figyelem: \"%s\" kihagyva.", "Árvíztűrő Kft.")
	in.Danger("hibás fájl")

	out := decodeFlashes(encodeFlashes(in))
	if len(out) != len(in) {
		t.Fatalf("expected %d flashes, got %d", len(in), len(out))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("flash %d: got %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestDecodeFlashesRejectsGarbage(t *testing.T) {
	for _, v := range []string{"!!!", "bm90IGpzb24", ""} {
		if got := decodeFlashes(v); got != nil {
			t.Errorf("decodeFlashes(%q) = %+v, want nil", v, got)
		}
	}
}

func TestSetFlashCookie(t *testing.T) {
	t.Run("empty list sets nothing", func(t *testing.T) {
		rr := httptest.NewRecorder()
		setFlashCookie(rr, nil)
		if len(rr.Result().Cookies()) != 0 {
			t.Fatal("no cookie expected")
		}
	})

	t.Run("attributes", func(t *testing.T) {
		var f Flashes
		f.Success("ok")
		rr := httptest.NewRecorder()
		setFlashCookie(rr, f)
		cookies := rr.Result().Cookies()
		if len(cookies) != 1 {
			t.Fatalf("expected one cookie, got %d", len(cookies))
		}
		c := cookies[0]
		if c.Name != flashCookieName || !c.HttpOnly || c.SameSite != http.SameSiteLaxMode || c.Path != "/" {
			t.Fatalf("unexpected cookie %+v", c)
		}
	})

	t.Run("oversized list keeps the outcome", func(t *testing.T) {
		var f Flashes
		for i := 0; i < 100; i++ {
			f.Warning("Hibás sor a CSV fájlban (%d. sor): %s. Kihagyva.", i+2, strings.Repeat("x", 60))
		}
		f.Success("%d cég sikeresen importálva!", 1)
		rr := httptest.NewRecorder()
		setFlashCookie(rr, f)
		c := rr.Result().Cookies()[0]
		if len(c.Value) > maxFlashCookieBytes {
			t.Fatalf("cookie value too large: %d bytes", len(c.Value))
		}
		got := decodeFlashes(c.Value)
		if len(got) < 3 {
			t.Fatalf("expected leading warnings, a summary and the outcome, got %+v", got)
		}
		if got[len(got)-1] != f[len(f)-1] {
			t.Fatalf("the last flash must be kept, got %+v", got[len(got)-1])
		}
		summary := got[len(got)-2]
		if summary.Kind != FlashInfo || !strings.HasPrefix(summary.Message, "…és további") {
			t.Fatalf("expected a summary before the outcome, got %+v", summary)
		}
		if got[0] != f[0] {
			t.Fatalf("leading flashes must be kept in order")
		}
	})

	t.Run("single oversized message is shortened", func(t *testing.T) {
		var f Flashes
		f.Danger("%s", strings.Repeat("hosszú hiba ", 1000))
		rr := httptest.NewRecorder()
		setFlashCookie(rr, f)
		c := rr.Result().Cookies()[0]
		if len(c.Value) > maxFlashCookieBytes {
			t.Fatalf("cookie value too large: %d bytes", len(c.Value))
		}
		got := decodeFlashes(c.Value)
		if len(got) != 1 || got[0].Kind != FlashDanger || !strings.HasPrefix(got[0].Message, "hosszú hiba") || !strings.HasSuffix(got[0].Message, "…") {
			t.Fatalf("expected one shortened danger flash, got %+v", got)
		}
	})
}

func TestPopFlashesClearsCookie(t *testing.T) {
	var f Flashes
	f.Danger("hiba")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: flashCookieName, Value: encodeFlashes(f)})
	rr := httptest.NewRecorder()

	got := popFlashes(rr, req)
	if len(got) != 1 || got[0].Message != "hiba" {
		t.Fatalf("unexpected flashes %+v", got)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected an expiring cookie, got %+v", cookies)
	}

	rr = httptest.NewRecorder()
	if got := popFlashes(rr, httptest.NewRequest(http.MethodGet, "/", nil)); got != nil {
		t.Fatalf("expected no flashes without cookie, got %+v", got)
	}
	if len(rr.Result().Cookies()) != 0 {
		t.Fatal("nothing to clear without a cookie")
	}
}
