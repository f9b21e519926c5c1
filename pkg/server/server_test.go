package server_test

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"

	"github.com/animalet/sargantana-contacts/pkg/config"
	"github.com/animalet/sargantana-contacts/pkg/contacts"
	"github.com/animalet/sargantana-contacts/pkg/server"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
)

type greetingConfig struct {
	Path     string `yaml:"path"`
	Greeting string `yaml:"greeting"`
}

func (g greetingConfig) Validate() error {
	if g.Path == "" {
		return errors.New("path is required")
	}
	return nil
}

// greeter answers on its path and, behind login, on path + "/private".
type greeter struct {
	cfg    greetingConfig
	ctx    server.ControllerContext
	closed *[]string
}

func (g *greeter) Bind(engine *gin.Engine, login gin.HandlerFunc) error {
	engine.GET(g.cfg.Path, func(c *gin.Context) {
		s := sessions.Default(c)
		s.Set("seen", true)
		_ = s.Save()
		c.String(http.StatusOK, "%s from %s", g.cfg.Greeting, g.ctx.AppInfo.DatabaseProvider)
	})
	engine.GET(g.cfg.Path+"/private", login, func(c *gin.Context) {
		c.String(http.StatusOK, "secret")
	})
	return nil
}

func (g *greeter) Close() error {
	*g.closed = append(*g.closed, g.cfg.Path)
	return nil
}

var greeterTypes int

type allowAll struct{}

func (allowAll) Middleware() gin.HandlerFunc { return func(c *gin.Context) { c.Next() } }

var _ = Describe("Server", func() {
	var (
		closed   []string
		typeName string
		cfg      server.WebServerConfig
	)

	binding := func(yaml string) server.ControllerBinding {
		return server.ControllerBinding{TypeName: typeName, Config: config.ModuleRawConfig(yaml)}
	}

	get := func(h http.Handler, path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	BeforeEach(func() {
		closed = nil
		greeterTypes++
		typeName = fmt.Sprintf("greeter-%d", greeterTypes)
		server.RegisterController(typeName, func(raw config.ModuleRawConfig, ctx server.ControllerContext) (server.IController, error) {
			gc, err := config.Unmarshal[greetingConfig](raw)
			if err != nil {
				return nil, err
			}
			if gc.Greeting == "panic" {
				panic("boom")
			}
			return &greeter{cfg: *gc, ctx: ctx, closed: &closed}, nil
		})
		cfg = server.WebServerConfig{Address: "127.0.0.1:0", SessionName: "contacts", SessionSecret: "0123456789abcdef"}
	})

	It("binds configured controllers with sessions and security headers", func() {
		srv := server.NewServer(cfg, server.ControllerBindings{binding("path: /hello\ngreeting: hi")})
		srv.SetContacts(contacts.NewMemoryRepository(), server.AppInfo{DatabaseProvider: "InMemory"})
		h, err := srv.Handler()
		Expect(err).NotTo(HaveOccurred())

		w := get(h, "/hello")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(Equal("hi from InMemory"))
		Expect(w.Header().Get("X-Frame-Options")).To(Equal("DENY"))
		Expect(w.Header().Get("Set-Cookie")).To(HavePrefix("contacts="))
	})

	It("excludes controllers that fail to configure", func() {
		srv := server.NewServer(cfg, server.ControllerBindings{
			binding("path: /ok\ngreeting: ok"),
			binding("greeting: missing path"),
			binding("path: /panics\ngreeting: panic"),
			{TypeName: "no-such-type", Config: config.ModuleRawConfig("{}")},
		})
		h, err := srv.Handler()
		Expect(err).NotTo(HaveOccurred())

		Expect(get(h, "/ok").Code).To(Equal(http.StatusOK))
		Expect(get(h, "/panics").Code).To(Equal(http.StatusNotFound))
	})

	It("rejects guarded routes until an authenticator is set", func() {
		srv := server.NewServer(cfg, server.ControllerBindings{binding("path: /a\ngreeting: hi")})
		h, err := srv.Handler()
		Expect(err).NotTo(HaveOccurred())
		Expect(get(h, "/a/private").Code).To(Equal(http.StatusUnauthorized))

		srv = server.NewServer(cfg, server.ControllerBindings{binding("path: /a\ngreeting: hi")})
		srv.SetAuthenticator(allowAll{})
		h, err = srv.Handler()
		Expect(err).NotTo(HaveOccurred())
		Expect(get(h, "/a/private").Body.String()).To(Equal("secret"))
	})

	It("does not observe later changes to its configuration", func() {
		bindings := server.ControllerBindings{binding("path: /before\ngreeting: hi")}
		srv := server.NewServer(cfg, bindings)
		bindings[0].Config = config.ModuleRawConfig("path: /after\ngreeting: hi")

		h, err := srv.Handler()
		Expect(err).NotTo(HaveOccurred())
		Expect(get(h, "/before").Code).To(Equal(http.StatusOK))
		Expect(get(h, "/after").Code).To(Equal(http.StatusNotFound))
	})

	It("serves until shut down and runs hooks in reverse order", func() {
		srv := server.NewServer(cfg, server.ControllerBindings{binding("path: /live\ngreeting: hi")})
		srv.AddShutdownHook(func() error {
			closed = append(closed, "first hook")
			return nil
		})
		Expect(srv.Addr()).To(BeNil())
		Expect(srv.Start()).To(Succeed())

		resp, err := http.Get("http://" + srv.Addr().String() + "/live")
		Expect(err).NotTo(HaveOccurred())
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		Expect(string(body)).To(Equal("hi from "))

		Expect(srv.Shutdown()).To(Succeed())
		Expect(srv.Shutdown()).To(Succeed())
		Expect(closed).To(Equal([]string{"/live", "first hook"}))

		_, err = http.Get("http://" + srv.Addr().String() + "/live")
		Expect(err).To(HaveOccurred())
	})

	It("reports listen errors from Start", func() {
		busy, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		defer busy.Close()

		cfg.Address = busy.Addr().String()
		srv := server.NewServer(cfg, nil)
		Expect(srv.Start()).To(MatchError(ContainSubstring("failed to listen")))
	})
})
