// Package middleware holds gin middleware shared by every route.
package middleware

import (
	"strings"

	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

const (
	defaultContentSecurityPolicy = "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; object-src 'none'; frame-ancestors 'none'; base-uri 'self'; form-action 'self';"
	defaultReferrerPolicy        = "strict-origin-when-cross-origin"
	defaultPermissionsPolicy     = "geolocation=(), microphone=(), camera=(), payment=()"
	defaultSTSSeconds            = 31536000
)

// SecurityConfig is the "security" block of the server module. Zero values fall back
// to strict defaults.
type SecurityConfig struct {
	AllowedHosts          []string          `yaml:"allowed_hosts,omitempty"`
	SSLRedirect           bool              `yaml:"ssl_redirect,omitempty"`
	SSLHost               string            `yaml:"ssl_host,omitempty"`
	SSLProxyHeaders       map[string]string `yaml:"ssl_proxy_headers,omitempty"`
	STSSeconds            *int64            `yaml:"sts_seconds,omitempty"` // 0 disables HSTS
	FrameOptions          string            `yaml:"frame_options,omitempty"`
	ContentSecurityPolicy string            `yaml:"content_security_policy,omitempty"`
	ReferrerPolicy        string            `yaml:"referrer_policy,omitempty"`
	PermissionsPolicy     string            `yaml:"permissions_policy,omitempty"`
}

func (s SecurityConfig) Validate() error {
	if s.STSSeconds != nil && *s.STSSeconds < 0 {
		return errors.New("sts_seconds must be non-negative")
	}
	switch strings.ToUpper(s.FrameOptions) {
	case "", "DENY", "SAMEORIGIN":
	default:
		return errors.Errorf("invalid frame_options %q, must be DENY or SAMEORIGIN", s.FrameOptions)
	}
	return nil
}

// Secure translates the configuration into gin-contrib/secure settings.
func (s SecurityConfig) Secure() secure.Config {
	cfg := secure.Config{
		AllowedHosts:          s.AllowedHosts,
		SSLRedirect:           s.SSLRedirect,
		SSLHost:               s.SSLHost,
		SSLProxyHeaders:       s.SSLProxyHeaders,
		STSSeconds:            defaultSTSSeconds,
		STSIncludeSubdomains:  true,
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		IENoOpen:              true,
		ContentSecurityPolicy: orDefault(s.ContentSecurityPolicy, defaultContentSecurityPolicy),
		ReferrerPolicy:        orDefault(s.ReferrerPolicy, defaultReferrerPolicy),
	}
	if s.STSSeconds != nil {
		cfg.STSSeconds = *s.STSSeconds
	}
	if frame := strings.ToUpper(s.FrameOptions); frame != "" && frame != "DENY" {
		cfg.FrameDeny = false
		cfg.CustomFrameOptionsValue = frame
	}
	return cfg
}

// Security returns the middleware enforcing s.
func Security(s SecurityConfig) gin.HandlerFunc {
	enforce := secure.New(s.Secure())
	permissions := orDefault(s.PermissionsPolicy, defaultPermissionsPolicy)
	return func(c *gin.Context) {
		c.Header("Permissions-Policy", permissions)
		enforce(c)
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
