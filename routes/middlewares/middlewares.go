package middlewares

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/oauth"
	"github.com/mbolis/vsaq/httpx"
	"github.com/mbolis/vsaq/log"
)

// Admin middleware to check for the 'admin' role in an OAuth token signed
// with secret.
func Admin(secret string) func(http.Handler) http.Handler {
	return chi.Chain(oauth.Authorize(secret, nil), admin).Handler
}

func admin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := r.Context().Value(oauth.ClaimsContext).(map[string]string)

		isAdmin := false
		if rolesClaim, ok := claims["roles"]; ok {
			roles := strings.Split(rolesClaim, ",")
			for _, role := range roles {
				if role == "admin" {
					isAdmin = true
					break
				}
			}
		}

		if !isAdmin {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// AdminID is the id of the admin the request's token was issued to, 0 when
// the token carries none.
func AdminID(r *http.Request) int {
	claims, _ := r.Context().Value(oauth.ClaimsContext).(map[string]string)
	id, err := strconv.Atoi(claims["admin_id"])
	if err != nil {
		return 0
	}
	return id
}

// SetTokenCookies copies a token response of the bearer server into cookies,
// for clients that cannot keep the tokens themselves.
func SetTokenCookies(w http.ResponseWriter, tokenResponse []byte, secure bool) error {
	var body map[string]any
	err := json.Unmarshal(tokenResponse, &body)
	if err != nil {
		return err
	}

	accessToken, _ := body["access_token"].(string)
	refreshToken, _ := body["refresh_token"].(string)
	expiresIn, _ := body["expires_in"].(float64)
	if accessToken == "" {
		return errors.New("token response without access_token")
	}

	http.SetCookie(w, &http.Cookie{
		Path:     "/",
		Name:     "access_token",
		Value:    accessToken,
		MaxAge:   int(expiresIn),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
	if refreshToken != "" {
		http.SetCookie(w, &http.Cookie{
			Path:     "/",
			Name:     "refresh_token",
			Value:    refreshToken,
			MaxAge:   60 * 60 * 24 * 365,
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteStrictMode,
		})
	}
	return nil
}

func clearRefreshCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Path:     "/",
		Name:     "refresh_token",
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// CookieAuth lets requests without an Authorization header authenticate with
// the access_token cookie. When that token is missing or refused, the
// refresh_token cookie is traded for a new pair and the request is replayed.
func CookieAuth(bearerServer *oauth.BearerServer, secure bool) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("authorization") != "" {
				h.ServeHTTP(w, r)
				return
			}

			// the body may have to be read twice
			var body []byte
			if r.Body != nil {
				var err error
				body, err = io.ReadAll(r.Body)
				if err != nil {
					httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "cookie_auth.read_body")
					return
				}
				r.Body.Close()
			}
			rewind := func() {
				r.Body = io.NopCloser(bytes.NewReader(body))
			}

			token, err := r.Cookie("access_token")
			if err == nil {
				r.Header.Set("authorization", "Bearer "+token.Value)
				rewind()
				buf := httpx.NewResponseBuffer()
				h.ServeHTTP(buf, r)
				if buf.Status() != http.StatusUnauthorized {
					buf.Flush(w)
					return
				}
				r.Header.Del("authorization")
			}

			// token was empty or unauthorized
			refreshToken, err := r.Cookie("refresh_token")
			if err != nil {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			// produce new token by calling bearer server
			form := url.Values{
				"grant_type":    {"refresh_token"},
				"refresh_token": {refreshToken.Value},
			}
			req, err := http.NewRequestWithContext(r.Context(), "POST", "/", strings.NewReader(form.Encode()))
			if err != nil {
				httpx.LogInternalError(w, "cookie_auth.new_request", err)
				return
			}
			req.Header.Set("content-type", "application/x-www-form-urlencoded")
			req.Header.Set("content-length", strconv.Itoa(len(form.Encode())))

			resp := httpx.NewResponseBuffer()
			bearerServer.UserCredentials(resp, req)
			if resp.Status() == http.StatusUnauthorized {
				clearRefreshCookie(w, secure)
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			if resp.Status() != 0 && resp.Status() != http.StatusOK {
				http.Error(w, http.StatusText(resp.Status()), resp.Status())
				return
			}

			err = SetTokenCookies(w, resp.Body(), secure)
			if err != nil {
				httpx.LogInternalError(w, "cookie_auth.parse_token", err)
				return
			}

			var tokens struct {
				AccessToken string `json:"access_token"`
			}
			json.Unmarshal(resp.Body(), &tokens)
			r.Header.Set("authorization", "Bearer "+tokens.AccessToken)
			rewind()
			h.ServeHTTP(w, r)
		})
	}
}
