package routes

import (
	"encoding/base64"
	"net/http"
	"strings"
)

const flashCookie = "kupolls_flash"

// addFlash queues a message for the next rendered page.
func (routes *Routes) addFlash(w http.ResponseWriter, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString([]byte(msg)),
		Path:     "/",
		HttpOnly: true,
		Secure:   routes.envConfig.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlashes reads the queued messages and clears them.
func (routes *Routes) popFlashes(w http.ResponseWriter, r *http.Request) []string {
	cookie, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   routes.envConfig.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	msg, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil || len(msg) == 0 {
		return nil
	}
	return strings.Split(string(msg), "\n")
}
