package session_test

import (
	"net/http"
	"net/http/httptest"

	"github.com/animalet/sargantana-contacts/pkg/server/session"
	"github.com/bradfitz/gomemcache/memcache"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Session stores", func() {
	secret := []byte("0123456789abcdef0123456789abcdef")

	It("uses lax, http-only cookies", func() {
		opts := session.Options(true)
		Expect(opts.Secure).To(BeTrue())
		Expect(opts.HttpOnly).To(BeTrue())
		Expect(opts.SameSite).To(Equal(http.SameSiteLaxMode))
		Expect(opts.MaxAge).To(Equal(session.MaxAge))
		Expect(session.Options(false).Secure).To(BeFalse())
	})

	It("round-trips values through the cookie store", func() {
		store, err := session.NewCookieStore(false, secret)
		Expect(err).NotTo(HaveOccurred())

		gin.SetMode(gin.TestMode)
		engine := gin.New()
		engine.Use(sessions.Sessions("contacts", store))
		engine.GET("/set", func(c *gin.Context) {
			s := sessions.Default(c)
			s.Set("flash", "saved")
			Expect(s.Save()).To(Succeed())
			c.Status(http.StatusNoContent)
		})
		engine.GET("/get", func(c *gin.Context) {
			c.String(http.StatusOK, "%v", sessions.Default(c).Get("flash"))
		})

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/set", nil))
		cookies := w.Result().Cookies()
		Expect(cookies).To(HaveLen(1))
		Expect(cookies[0].Name).To(Equal("contacts"))
		Expect(cookies[0].HttpOnly).To(BeTrue())

		req := httptest.NewRequest(http.MethodGet, "/get", nil)
		req.AddCookie(cookies[0])
		w = httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		Expect(w.Body.String()).To(Equal("saved"))
	})

	It("rejects empty secrets", func() {
		_, err := session.NewCookieStore(true, nil)
		Expect(err).To(MatchError("session secret cannot be empty"))
		_, err = session.NewMemcachedStore(true, nil, memcache.New("localhost:11211"))
		Expect(err).To(MatchError("session secret cannot be empty"))
	})

	It("rejects missing clients", func() {
		_, err := session.NewMemcachedStore(true, secret, nil)
		Expect(err).To(MatchError(ContainSubstring("memcached client cannot be nil")))
		_, err = session.NewRedisStore(true, secret, nil)
		Expect(err).To(MatchError(ContainSubstring("redis pool cannot be nil")))
		_, err = session.NewPostgresStore(true, secret, nil)
		Expect(err).To(MatchError(ContainSubstring("postgres pool cannot be nil")))
		_, err = session.NewMongoDBStore(true, secret, nil, "db", "sessions")
		Expect(err).To(MatchError(ContainSubstring("mongodb client cannot be nil")))
	})

	It("creates a memcached store without connecting", func() {
		store, err := session.NewMemcachedStore(true, secret, memcache.New("localhost:11211"))
		Expect(err).NotTo(HaveOccurred())
		Expect(store).NotTo(BeNil())
	})
})
