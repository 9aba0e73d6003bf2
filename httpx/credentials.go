package httpx

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/oauth"
	"github.com/mbolis/vsaq/config"
	"github.com/mbolis/vsaq/store"
)

// refresh tokens outlive access tokens by far; admins log in about once a year
const refreshTTL = 8760 * time.Hour

func NewBearerServer(st *store.Store, cfg config.Config) *oauth.BearerServer {
	return oauth.NewBearerServer(cfg.TokenSecret, cfg.TokenTTL, CredentialsVerifier(st), nil)
}

type credentialsVerifier struct {
	store *store.Store
}

func CredentialsVerifier(st *store.Store) oauth.CredentialsVerifier {
	return &credentialsVerifier{st}
}

func (cs *credentialsVerifier) ValidateUser(username string, password string, scope string, r *http.Request) error {
	return cs.store.Authenticate(r.Context(), username, password)
}
func (cs *credentialsVerifier) StoreTokenID(tokenType oauth.TokenType, credential string, tokenID string, refreshTokenID string) error {
	return cs.store.StoreToken(context.Background(), credential, tokenID, refreshTokenID, time.Now().Add(refreshTTL))
}
func (cs *credentialsVerifier) ValidateTokenID(tokenType oauth.TokenType, credential string, tokenID string, refreshTokenID string) error {
	ok, err := cs.store.ConsumeToken(context.Background(), credential, tokenID, refreshTokenID)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("could not refresh")
	}
	return nil
}

// AddClaims marks every token as an admin token and records who it was
// issued to, so handlers can attribute what they create.
func (cs *credentialsVerifier) AddClaims(tokenType oauth.TokenType, credential string, tokenID string, scope string, r *http.Request) (map[string]string, error) {
	admin, err := cs.store.GetAdmin(r.Context(), credential)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"roles":    "admin",
		"admin_id": strconv.Itoa(admin.ID),
	}, nil
}
func (*credentialsVerifier) AddProperties(tokenType oauth.TokenType, credential string, tokenID string, scope string, r *http.Request) (map[string]string, error) {
	return map[string]string{}, nil
}
func (*credentialsVerifier) ValidateClient(clientID string, clientSecret string, scope string, r *http.Request) error {
	return errors.New("not supported")
}
