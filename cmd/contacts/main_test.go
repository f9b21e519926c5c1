package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"
)

const minimalConfig = `server:
  address: localhost:0
  session_name: contacts
  session_secret: a_very_long_secret_key_for_testing_purposes
controllers:
  - type: contacts
    config:
      path: /
`

func writeConfig(content string) string {
	path := filepath.Join(GinkgoT().TempDir(), "config.yaml")
	Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
	return path
}

// capture redirects *stream while f runs and returns what was written.
func capture(stream **os.File, f func()) string {
	original := *stream
	r, w, err := os.Pipe()
	Expect(err).NotTo(HaveOccurred())
	*stream = w
	defer func() { *stream = original }()

	f()
	_ = w.Close()
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

var _ = Describe("parseFlags", func() {
	It("parses the config path and debug flag", func() {
		opts, err := parseFlags([]string{"--config", "/etc/contacts.yaml", "--debug"})
		Expect(err).NotTo(HaveOccurred())
		Expect(opts.configPath).To(Equal("/etc/contacts.yaml"))
		Expect(opts.debug).To(BeTrue())
		Expect(opts.showVersion).To(BeFalse())
	})

	It("accepts single dash flags", func() {
		opts, err := parseFlags([]string{"-config", "app.yaml", "-version"})
		Expect(err).NotTo(HaveOccurred())
		Expect(opts.configPath).To(Equal("app.yaml"))
		Expect(opts.showVersion).To(BeTrue())
	})

	It("treats -h as a help request", func() {
		opts, err := parseFlags([]string{"-h"})
		Expect(err).NotTo(HaveOccurred())
		Expect(opts.showHelp).To(BeTrue())
	})

	It("rejects unknown flags", func() {
		_, err := parseFlags([]string{"--nope"})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("printUsage", func() {
	It("describes every flag", func() {
		var buf bytes.Buffer
		printUsage(&buf)
		Expect(buf.String()).To(ContainSubstring("Usage: contacts"))
		for _, flag := range []string{"--config", "--debug", "--version", "--help", "DB_PROVIDER"} {
			Expect(buf.String()).To(ContainSubstring(flag))
		}
	})
})

var _ = Describe("setupLogging", func() {
	AfterEach(func() { setupLogging(false) })

	It("switches the global level", func() {
		setupLogging(true)
		Expect(zerolog.GlobalLevel()).To(Equal(zerolog.DebugLevel))
		setupLogging(false)
		Expect(zerolog.GlobalLevel()).To(Equal(zerolog.InfoLevel))
	})
})

var _ = Describe("runWithArgs", func() {
	It("prints help", func() {
		var code int
		out := capture(&os.Stdout, func() { code = runWithArgs([]string{"--help"}) })
		Expect(code).To(Equal(exitSuccess))
		Expect(out).To(ContainSubstring("Usage: contacts"))
	})

	It("prints the version", func() {
		var code int
		out := capture(&os.Stdout, func() { code = runWithArgs([]string{"--version"}) })
		Expect(code).To(Equal(exitSuccess))
		Expect(out).To(ContainSubstring("contacts version dev"))
	})

	It("requires a configuration file", func() {
		var code int
		out := capture(&os.Stderr, func() { code = runWithArgs(nil) })
		Expect(code).To(Equal(exitError))
		Expect(out).To(ContainSubstring("--config flag is required"))
	})

	It("fails on a missing configuration file", func() {
		Expect(runWithArgs([]string{"--config", "/nonexistent/contacts.yaml"})).To(Equal(exitError))
	})

	It("fails on an unknown database provider", func() {
		GinkgoT().Setenv("DB_PROVIDER", "Oracle")
		Expect(runWithArgs([]string{"--config", writeConfig(minimalConfig)})).To(Equal(exitError))
	})
})

var _ = Describe("initServer", func() {
	It("requires the server module", func() {
		_, _, err := initServer(&options{configPath: writeConfig("settings: {}\n")})
		Expect(err).To(MatchError(ContainSubstring("server configuration is required")))
	})

	It("rejects a malformed server module", func() {
		_, _, err := initServer(&options{configPath: writeConfig(`server: "not an object"` + "\n")})
		Expect(err).To(MatchError(ContainSubstring("failed to load server configuration")))
	})

	It("rejects malformed YAML", func() {
		_, _, err := initServer(&options{configPath: writeConfig("server: [[[")})
		Expect(err).To(HaveOccurred())
	})

	It("rejects an invalid controller binding", func() {
		_, _, err := initServer(&options{configPath: writeConfig(minimalConfig + "  - config: {}\n")})
		Expect(err).To(MatchError(ContainSubstring("failed to load controllers configuration")))
	})

	It("serves contacts from memory without database settings", func() {
		GinkgoT().Setenv("DB_PROVIDER", "")
		Expect(os.Unsetenv("DB_PROVIDER")).To(Succeed())

		srv, closer, err := initServer(&options{configPath: writeConfig(minimalConfig)})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(closer)

		handler, err := srv.Handler()
		Expect(err).NotTo(HaveOccurred())
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`<span id="provider">InMemory</span>`))
	})

	It("uses settings for the provider", func() {
		cfg := minimalConfig + "settings:\n  DB_PROVIDER: Sybase\n"
		_, _, err := initServer(&options{configPath: writeConfig(cfg)})
		Expect(err).To(MatchError(ContainSubstring("unknown database provider")))
	})
})
