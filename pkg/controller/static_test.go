package controller_test

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/animalet/sargantana-contacts/pkg/config"
	"github.com/animalet/sargantana-contacts/pkg/controller"
	"github.com/animalet/sargantana-contacts/pkg/server"
	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Static controller", func() {
	var dir, file string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		file = filepath.Join(dir, "robots.txt")
		Expect(os.WriteFile(file, []byte("User-agent: *\n"), 0o600)).To(Succeed())
	})

	DescribeTable("validation",
		func(cfg func() controller.StaticControllerConfig, message string) {
			Expect(cfg().Validate()).To(MatchError(ContainSubstring(message)))
		},
		Entry("missing path", func() controller.StaticControllerConfig { return controller.StaticControllerConfig{Dir: dir} }, "path must be set"),
		Entry("neither dir nor file", func() controller.StaticControllerConfig { return controller.StaticControllerConfig{Path: "/s"} }, "either dir or file must be set"),
		Entry("both dir and file", func() controller.StaticControllerConfig {
			return controller.StaticControllerConfig{Path: "/s", Dir: dir, File: file}
		}, "cannot set both dir and file"),
		Entry("missing file", func() controller.StaticControllerConfig {
			return controller.StaticControllerConfig{Path: "/s", File: filepath.Join(dir, "nope")}
		}, "static file not present"),
		Entry("file is a directory", func() controller.StaticControllerConfig {
			return controller.StaticControllerConfig{Path: "/s", File: dir}
		}, "is a directory"),
		Entry("missing dir", func() controller.StaticControllerConfig {
			return controller.StaticControllerConfig{Path: "/s", Dir: filepath.Join(dir, "nope")}
		}, "statics directory not present"),
		Entry("dir is a file", func() controller.StaticControllerConfig {
			return controller.StaticControllerConfig{Path: "/s", Dir: file}
		}, "is not a directory"),
	)

	bind := func(raw string) *gin.Engine {
		ctrl, err := controller.NewStaticController(config.ModuleRawConfig(raw), server.ControllerContext{})
		Expect(err).NotTo(HaveOccurred())
		engine := gin.New()
		Expect(ctrl.Bind(engine, denyAll)).To(Succeed())
		return engine
	}

	It("serves a single file", func() {
		engine := bind("path: /robots.txt\nfile: " + file + "\n")
		w := serve(engine, http.MethodGet, "/robots.txt", nil)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(Equal("User-agent: *\n"))
	})

	It("serves a directory", func() {
		engine := bind("path: /files\ndir: " + dir + "\n")
		Expect(serve(engine, http.MethodGet, "/files/robots.txt", nil).Code).To(Equal(http.StatusOK))
	})

	It("guards content behind login when asked", func() {
		engine := bind("path: /files\ndir: " + dir + "\nauth: true\n")
		Expect(serve(engine, http.MethodGet, "/files/robots.txt", nil).Code).To(Equal(http.StatusUnauthorized))
	})

	It("requires a configuration", func() {
		_, err := controller.NewStaticController(nil, server.ControllerContext{})
		Expect(err).To(HaveOccurred())
	})
})
