package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"roombook/internal/config"
	"roombook/internal/models"
	"roombook/internal/service"
)

const (
	apiKeyHeaderDefault   = "x-api-key"
	apiExtraHeaderDefault = "x-api-extra"
	// userEmailHeader identifies the caller when auth is disabled.
	userEmailHeader  = "x-user-email"
	clientKeyUnknown = "unknown"
)

var (
	errMissingCredentials = errors.New("missing api key headers")
	errInvalidAPIKey      = errors.New("invalid api key")
	errInvalidExtra       = errors.New("invalid extra header")
	errPermissionDenied   = errors.New("permission denied")
)

// Identity is the authenticated caller of an API request.
type Identity struct {
	Client    config.APIClientKey
	Requester models.Requester
}

// IsAdmin reports whether the caller may administer the catalog and users.
func (i Identity) IsAdmin() bool {
	return i.Requester.IsAdmin
}

type identityKey struct{}

func withIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored by the auth layer.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

func requesterFrom(ctx context.Context) models.Requester {
	id, _ := IdentityFrom(ctx)
	return id.Requester
}

// Authenticator resolves API keys to clients and clients to stored users.
// HTTP and gRPC share one instance.
type Authenticator struct {
	cfg     config.APIConfig
	clients map[string]config.APIClientKey
	users   *service.UserService
}

func NewAuthenticator(cfg config.APIConfig, users *service.UserService) *Authenticator {
	m := make(map[string]config.APIClientKey, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		m[k.Key] = k
	}
	return &Authenticator{cfg: cfg, clients: m, users: users}
}

func (a *Authenticator) apiKeyHeader() string {
	if h := strings.ToLower(strings.TrimSpace(a.cfg.Auth.HeaderAPIKey)); h != "" {
		return h
	}
	return apiKeyHeaderDefault
}

func (a *Authenticator) extraHeader() string {
	if h := strings.ToLower(strings.TrimSpace(a.cfg.Auth.HeaderExtra)); h != "" {
		return h
	}
	return apiExtraHeaderDefault
}

// Authenticate checks the key pair and builds the caller identity. get reads
// a header (HTTP) or metadata value (gRPC) by lower-case name.
func (a *Authenticator) Authenticate(ctx context.Context, get func(name string) string) (Identity, error) {
	if !a.cfg.Auth.Enabled {
		return a.identityFor(ctx, config.APIClientKey{Name: "anonymous", UserEmail: get(userEmailHeader)}), nil
	}

	apiKey := get(a.apiKeyHeader())
	extra := get(a.extraHeader())
	if apiKey == "" || extra == "" {
		return Identity{}, errMissingCredentials
	}

	client, ok := a.clients[apiKey]
	if !ok {
		return Identity{}, errInvalidAPIKey
	}
	if subtle.ConstantTimeCompare([]byte(client.Extra), []byte(extra)) != 1 {
		return Identity{}, errInvalidExtra
	}

	return a.identityFor(ctx, client), nil
}

// identityFor maps the client's user_email to a stored user. An unknown
// email still yields a requester; the booking service rejects it when the
// operation needs an owner.
func (a *Authenticator) identityFor(ctx context.Context, client config.APIClientKey) Identity {
	admin := client.HasPermission(config.PermissionAdmin)
	req := models.Requester{Email: strings.ToLower(strings.TrimSpace(client.UserEmail)), IsAdmin: admin}

	if req.Email != "" && a.users != nil {
		if user, err := a.users.GetUserByEmail(ctx, req.Email); err == nil {
			req = a.users.Requester(user, admin)
		}
	}
	return Identity{Client: client, Requester: req}
}

// ClientKey returns the rate-limit key: the API key when present.
func (a *Authenticator) ClientKey(get func(name string) string, remote string) string {
	if apiKey := get(a.apiKeyHeader()); apiKey != "" {
		return apiKey
	}
	if remote != "" {
		return remote
	}
	return clientKeyUnknown
}
