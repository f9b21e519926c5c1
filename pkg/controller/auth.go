package controller

import (
	"encoding/gob"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/animalet/sargantana-contacts/pkg/config"
	"github.com/animalet/sargantana-contacts/pkg/server"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/github"
	"github.com/markbates/goth/providers/gitlab"
	"github.com/markbates/goth/providers/google"
	"github.com/markbates/goth/providers/openidConnect"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const userSessionKey = "user"

// ProviderConfig holds the OAuth client registration for one provider.
type ProviderConfig struct {
	Key          string   `yaml:"key"`
	Secret       string   `yaml:"secret"`
	Scopes       []string `yaml:"scopes,omitempty"`
	DiscoveryURL string   `yaml:"discovery_url,omitempty"` // openid-connect only
}

// AuthControllerConfig configures OAuth login. Paths may contain "{provider}".
type AuthControllerConfig struct {
	// CallbackURL is the externally visible base URL. When empty it is derived from
	// the server address.
	CallbackURL      string                    `yaml:"callback_url,omitempty"`
	CallbackPath     string                    `yaml:"callback_path"`
	LoginPath        string                    `yaml:"login_path"`
	LogoutPath       string                    `yaml:"logout_path"`
	UserInfoPath     string                    `yaml:"user_info_path"`
	RedirectOnLogin  string                    `yaml:"redirect_on_login"`
	RedirectOnLogout string                    `yaml:"redirect_on_logout"`
	Providers        map[string]ProviderConfig `yaml:"providers"`
}

func (a AuthControllerConfig) Validate() error {
	if len(a.Providers) == 0 {
		return errors.New("at least one provider must be configured")
	}
	for name, p := range a.Providers {
		if !supportedProvider(name) {
			return errors.Errorf("provider %q is not supported", name)
		}
		if p.Key == "" {
			return errors.Errorf("provider %q: key must be set and non-empty", name)
		}
		if p.Secret == "" {
			return errors.Errorf("provider %q: secret must be set and non-empty", name)
		}
		if name == openIDConnect && p.DiscoveryURL == "" {
			return errors.Errorf("provider %q: discovery_url must be set and non-empty", name)
		}
	}
	required := []struct{ name, value string }{
		{"callback_path", a.CallbackPath},
		{"login_path", a.LoginPath},
		{"logout_path", a.LogoutPath},
		{"user_info_path", a.UserInfoPath},
		{"redirect_on_login", a.RedirectOnLogin},
		{"redirect_on_logout", a.RedirectOnLogout},
	}
	for _, r := range required {
		if r.value == "" {
			return errors.Errorf("%s must be set and non-empty", r.name)
		}
	}
	if a.CallbackURL != "" {
		if u, err := url.Parse(a.CallbackURL); err != nil || !u.IsAbs() {
			return errors.Errorf("callback_url %q must be an absolute URL", a.CallbackURL)
		}
	}
	return nil
}

const openIDConnect = "openid-connect"

func supportedProvider(name string) bool {
	switch name {
	case "github", "gitlab", "google", openIDConnect:
		return true
	}
	return false
}

// ProvidersFactory turns configured providers into goth providers. callbackURL
// contains "{provider}" where the provider name goes.
type ProvidersFactory interface {
	CreateProviders(providers map[string]ProviderConfig, callbackURL string) ([]goth.Provider, error)
}

// ProviderFactory is the factory NewAuthController uses.
var ProviderFactory ProvidersFactory = oauthProviders{}

type oauthProviders struct{}

func (oauthProviders) CreateProviders(providers map[string]ProviderConfig, callbackURL string) ([]goth.Provider, error) {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)

	var result []goth.Provider
	for _, name := range names {
		p := providers[name]
		callback := strings.ReplaceAll(callbackURL, "{provider}", name)
		switch name {
		case "github":
			result = append(result, github.New(p.Key, p.Secret, callback, p.Scopes...))
		case "gitlab":
			result = append(result, gitlab.New(p.Key, p.Secret, callback, p.Scopes...))
		case "google":
			result = append(result, google.New(p.Key, p.Secret, callback, p.Scopes...))
		case openIDConnect:
			// openidConnect fetches the discovery document here
			provider, err := openidConnect.New(p.Key, p.Secret, callback, p.DiscoveryURL, p.Scopes...)
			if err != nil {
				return nil, errors.Wrap(err, "failed to set up openid-connect provider")
			}
			result = append(result, provider)
		}
	}
	return result, nil
}

// UserObject is what a successful login stores in the session.
type UserObject struct {
	Id   string    `json:"id"`
	User goth.User `json:"user"`
}

func init() {
	gob.Register(UserObject{})
}

func NewAuthController(configData config.ModuleRawConfig, ctx server.ControllerContext) (server.IController, error) {
	cfg, err := config.Unmarshal[AuthControllerConfig](configData)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, errors.New("auth controller requires a configuration")
	}

	base := cfg.CallbackURL
	if base == "" {
		if base, err = callbackBase(ctx.ServerConfig.Address); err != nil {
			return nil, err
		}
	}
	callbackURL := strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(cfg.CallbackPath, "/")

	providers, err := ProviderFactory.CreateProviders(cfg.Providers, callbackURL)
	if err != nil {
		return nil, err
	}
	goth.UseProviders(providers...)
	if ctx.SessionStore != nil {
		gothic.Store = ctx.SessionStore
	}

	log.Info().
		Str("callback", callbackURL).
		Int("providers", len(providers)).
		Msg("OAuth login configured")

	return &auth{
		loginPath:        providerToGin(cfg.LoginPath),
		logoutPath:       providerToGin(cfg.LogoutPath),
		userInfoPath:     providerToGin(cfg.UserInfoPath),
		redirectOnLogin:  cfg.RedirectOnLogin,
		redirectOnLogout: cfg.RedirectOnLogout,
		callbackPath:     providerToGin(cfg.CallbackPath),
	}, nil
}

func callbackBase(address string) (string, error) {
	if !strings.Contains(address, "://") {
		address = "http://" + address
	}
	u, err := url.Parse(address)
	if err != nil {
		return "", errors.Wrap(err, "failed to parse server address")
	}
	host := u.Hostname()
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	if port := u.Port(); port != "" {
		host += ":" + port
	}
	return u.Scheme + "://" + host, nil
}

func providerToGin(path string) string {
	return strings.ReplaceAll(path, "{provider}", ":provider")
}

type auth struct {
	loginPath        string
	logoutPath       string
	userInfoPath     string
	redirectOnLogin  string
	redirectOnLogout string
	callbackPath     string
}

func (a *auth) Bind(engine *gin.Engine, loginMiddleware gin.HandlerFunc) error {
	flow := engine.Group("/", providerQuery)
	flow.GET(a.loginPath, a.login)
	flow.GET(a.callbackPath, a.callback)
	flow.GET(a.logoutPath, a.logout)
	engine.GET(a.userInfoPath, loginMiddleware, a.userInfo)
	return nil
}

func (a *auth) Close() error {
	return nil
}

// providerQuery copies the :provider route param into the query string, where gothic
// looks for it.
func providerQuery(c *gin.Context) {
	if provider := c.Param("provider"); provider != "" {
		q := c.Request.URL.Query()
		q.Set("provider", provider)
		c.Request.URL.RawQuery = q.Encode()
	}
	c.Next()
}

func (a *auth) login(c *gin.Context) {
	if user, err := gothic.CompleteUserAuth(c.Writer, c.Request); err == nil {
		a.success(c, user)
		return
	}
	gothic.BeginAuthHandler(c.Writer, c.Request)
}

func (a *auth) callback(c *gin.Context) {
	user, err := gothic.CompleteUserAuth(c.Writer, c.Request)
	if err != nil {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "authentication failed"})
		return
	}
	a.success(c, user)
}

func (a *auth) success(c *gin.Context, user goth.User) {
	s := sessions.Default(c)
	u := newUserObject(user)
	s.Set(userSessionKey, u)
	s.AddFlash("Signed in as " + u.Id + ".")
	if saveSession(c, s) {
		c.Redirect(http.StatusFound, a.redirectOnLogin)
	}
}

func (a *auth) logout(c *gin.Context) {
	if err := gothic.Logout(c.Writer, c.Request); err != nil {
		log.Warn().Err(err).Msg("Failed to clear provider session")
	}
	s := sessions.Default(c)
	s.Clear()
	if saveSession(c, s) {
		c.Redirect(http.StatusFound, a.redirectOnLogout)
	}
}

func (a *auth) userInfo(c *gin.Context) {
	u, _ := sessions.Default(c).Get(userSessionKey).(UserObject)
	c.JSON(http.StatusOK, gin.H{"id": u.Id, "name": u.User.Name, "provider": u.User.Provider})
}

func newUserObject(user goth.User) UserObject {
	id := user.Email
	if id == "" {
		id = user.UserID + "@" + user.Provider
	}
	return UserObject{Id: id, User: user}
}

// GothAuthenticator admits requests whose session holds an unexpired login.
type GothAuthenticator struct{}

func NewGothAuthenticator() server.Authenticator {
	return &GothAuthenticator{}
}

func (g *GothAuthenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessions.Default(c)
		raw := s.Get(userSessionKey)
		if raw == nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		u, ok := raw.(UserObject)
		if !ok || (!u.User.ExpiresAt.IsZero() && time.Now().After(u.User.ExpiresAt)) {
			s.Clear()
			if saveSession(c, s) {
				c.AbortWithStatus(http.StatusUnauthorized)
			}
			return
		}
		c.Next()
	}
}
