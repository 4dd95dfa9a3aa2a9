package http

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// FlashKind maps to the CSS class of the message box.
type FlashKind string

const (
	FlashSuccess FlashKind = "success"
	FlashWarning FlashKind = "warning"
	FlashDanger  FlashKind = "danger"
	FlashInfo    FlashKind = "info"
)

type Flash struct {
	Kind    FlashKind `json:"k"`
	Message string    `json:"m"`
}

const (
	flashCookieName = "szamlazo_flash"
	// Browsers drop cookies above 4096 bytes; keep headroom for attributes.
	maxFlashCookieBytes = 3500
)

// Flashes collects messages to show on the next rendered page.
type Flashes []Flash

func (f *Flashes) Add(kind FlashKind, format string, args ...any) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	*f = append(*f, Flash{Kind: kind, Message: msg})
}

func (f *Flashes) Success(format string, args ...any) { f.Add(FlashSuccess, format, args...) }
func (f *Flashes) Warning(format string, args ...any) { f.Add(FlashWarning, format, args...) }
func (f *Flashes) Danger(format string, args ...any)  { f.Add(FlashDanger, format, args...) }

// setFlashCookie stores flashes for the request that follows a redirect.
// When the encoded list is too large, messages before the last one are
// replaced by a count; the last message carries the outcome and always stays.
func setFlashCookie(w http.ResponseWriter, flashes Flashes) {
	if len(flashes) == 0 {
		return
	}
	value := fitFlashes(flashes)
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlashes reads and clears the flash cookie.
func popFlashes(w http.ResponseWriter, r *http.Request) Flashes {
	c, err := r.Cookie(flashCookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return decodeFlashes(c.Value)
}

func fitFlashes(flashes Flashes) string {
	value := encodeFlashes(flashes)
	if len(value) <= maxFlashCookieBytes {
		return value
	}
	last := flashes[len(flashes)-1]
	head := flashes[:len(flashes)-1]
	for n := len(head) - 1; n >= 0; n-- {
		kept := append(Flashes(nil), head[:n]...)
		kept.Add(FlashInfo, "…és további %d üzenet.", len(head)-n)
		kept = append(kept, last)
		if value = encodeFlashes(kept); len(value) <= maxFlashCookieBytes {
			return value
		}
	}
	// a single message is too large on its own
	msg := []rune(last.Message)
	for len(value) > maxFlashCookieBytes && len(msg) > 0 {
		msg = msg[:len(msg)*3/4]
		last.Message = string(msg) + "…"
		value = encodeFlashes(Flashes{last})
	}
	return value
}

func encodeFlashes(flashes Flashes) string {
	data, err := json.Marshal(flashes)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

func decodeFlashes(value string) Flashes {
	data, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil
	}
	var flashes Flashes
	if err := json.Unmarshal(data, &flashes); err != nil {
		return nil
	}
	return flashes
}
