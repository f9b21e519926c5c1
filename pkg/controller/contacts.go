package controller

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"strings"

	"github.com/animalet/sargantana-contacts/pkg/config"
	"github.com/animalet/sargantana-contacts/pkg/contacts"
	"github.com/animalet/sargantana-contacts/pkg/server"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed assets
var assetsFS embed.FS

// ContactsControllerConfig configures the contact pages.
type ContactsControllerConfig struct {
	// Path the pages are mounted under. Defaults to "/".
	Path string `yaml:"path"`
	// Auth requires login for every route that changes contacts.
	Auth bool `yaml:"auth,omitempty"`
}

func (c ContactsControllerConfig) Validate() error {
	if c.Path != "" && !strings.HasPrefix(c.Path, "/") {
		return errors.Errorf("path %q must start with /", c.Path)
	}
	return nil
}

// NewContactsController builds the contact pages on top of ctx.Contacts.
func NewContactsController(configData config.ModuleRawConfig, ctx server.ControllerContext) (server.IController, error) {
	cfg, err := config.Unmarshal[ContactsControllerConfig](configData)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = &ContactsControllerConfig{}
	}
	if ctx.Contacts == nil {
		return nil, errors.New("contacts controller requires a contacts repository")
	}
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	base := strings.TrimSuffix(cfg.Path, "/")
	log.Info().
		Str("path", base+"/").
		Bool("auth", cfg.Auth).
		Str("provider", ctx.AppInfo.DatabaseProvider).
		Msg("Contact pages configured")

	return &contactsController{
		base:  base,
		auth:  cfg.Auth,
		repo:  ctx.Contacts,
		info:  ctx.AppInfo,
		pages: pages,
	}, nil
}

type contactsController struct {
	base  string
	auth  bool
	repo  contacts.Repository
	info  server.AppInfo
	pages map[string]*template.Template
}

func parsePages() (map[string]*template.Template, error) {
	pages := map[string]*template.Template{}
	for _, name := range []string{"list", "form", "error"} {
		t, err := template.ParseFS(templatesFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse %s page", name)
		}
		pages[name] = t
	}
	return pages, nil
}

func (cc *contactsController) Bind(engine *gin.Engine, loginMiddleware gin.HandlerFunc) error {
	assets, err := fs.Sub(assetsFS, "assets")
	if err != nil {
		return err
	}

	group := engine.Group(cc.base + "/")
	group.StaticFS("/assets", http.FS(assets))
	group.GET("/", cc.list)
	group.GET("/healthz", cc.health)

	guarded := group.Group("/")
	if cc.auth {
		guarded.Use(loginMiddleware)
	}
	guarded.GET("/create", cc.createForm)
	guarded.POST("/create", cc.create)
	guarded.GET("/edit/:id", cc.editForm)
	guarded.POST("/edit/:id", cc.update)
	guarded.POST("/delete/:id", cc.delete)
	return nil
}

func (cc *contactsController) Close() error {
	return nil
}

// page is the data every template receives.
type page struct {
	Title    string
	Base     string
	Info     server.AppInfo
	User     string
	Flashes  []any
	Contacts []contacts.Contact
	Contact  contacts.Contact
	Errors   map[string]string
	Action   string
	Message  string
}

func (cc *contactsController) render(c *gin.Context, status int, name string, p page) {
	p.Base = cc.base
	p.Info = cc.info
	s := sessions.Default(c)
	if u, ok := s.Get(userSessionKey).(UserObject); ok {
		p.User = u.Id
	}
	if flashes := s.Flashes(); len(flashes) > 0 {
		p.Flashes = flashes
		if !saveSession(c, s) {
			return
		}
	}
	c.Render(status, render.HTML{Template: cc.pages[name], Name: "layout", Data: p})
}

func (cc *contactsController) fail(c *gin.Context, err error) {
	if errors.Is(err, contacts.ErrNotFound) {
		cc.render(c, http.StatusNotFound, "error", page{Title: "Not found", Message: "That contact does not exist."})
		return
	}
	_ = c.Error(err)
	cc.render(c, http.StatusInternalServerError, "error", page{Title: "Error", Message: "Something went wrong, please try again."})
}

func (cc *contactsController) redirectWithFlash(c *gin.Context, message string) {
	s := sessions.Default(c)
	s.AddFlash(message)
	if !saveSession(c, s) {
		return
	}
	c.Redirect(http.StatusSeeOther, cc.base+"/")
}

func (cc *contactsController) list(c *gin.Context) {
	all, err := cc.repo.List(c.Request.Context())
	if err != nil {
		cc.fail(c, err)
		return
	}
	cc.render(c, http.StatusOK, "list", page{Title: "Contacts", Contacts: all})
}

func (cc *contactsController) createForm(c *gin.Context) {
	cc.render(c, http.StatusOK, "form", page{Title: "New contact", Action: cc.base + "/create"})
}

func (cc *contactsController) create(c *gin.Context) {
	contact := contactFromForm(c)
	if err := cc.repo.Create(c.Request.Context(), &contact); err != nil {
		if fields := contacts.FieldErrors(err); fields != nil {
			cc.render(c, http.StatusBadRequest, "form", page{Title: "New contact", Action: cc.base + "/create", Contact: contact, Errors: fields})
			return
		}
		cc.fail(c, err)
		return
	}
	cc.redirectWithFlash(c, "Added "+contact.Name+".")
}

func (cc *contactsController) editForm(c *gin.Context) {
	id, ok := contactID(c)
	if !ok {
		cc.fail(c, contacts.ErrNotFound)
		return
	}
	contact, err := cc.repo.Get(c.Request.Context(), id)
	if err != nil {
		cc.fail(c, err)
		return
	}
	cc.render(c, http.StatusOK, "form", page{Title: "Edit contact", Action: cc.editAction(id), Contact: contact})
}

func (cc *contactsController) update(c *gin.Context) {
	id, ok := contactID(c)
	if !ok {
		cc.fail(c, contacts.ErrNotFound)
		return
	}
	contact := contactFromForm(c)
	contact.ID = id
	if err := cc.repo.Update(c.Request.Context(), &contact); err != nil {
		if fields := contacts.FieldErrors(err); fields != nil {
			cc.render(c, http.StatusBadRequest, "form", page{Title: "Edit contact", Action: cc.editAction(id), Contact: contact, Errors: fields})
			return
		}
		cc.fail(c, err)
		return
	}
	cc.redirectWithFlash(c, "Saved "+contact.Name+".")
}

func (cc *contactsController) delete(c *gin.Context) {
	id, ok := contactID(c)
	if !ok {
		cc.fail(c, contacts.ErrNotFound)
		return
	}
	if err := cc.repo.Delete(c.Request.Context(), id); err != nil {
		cc.fail(c, err)
		return
	}
	cc.redirectWithFlash(c, "Contact deleted.")
}

func (cc *contactsController) health(c *gin.Context) {
	body := gin.H{"provider": cc.info.DatabaseProvider, "status": "ok"}
	if err := cc.repo.Ping(c.Request.Context()); err != nil {
		log.Warn().Err(err).Msg("Contacts store health check failed")
		body["status"] = "unavailable"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}

func (cc *contactsController) editAction(id int64) string {
	return cc.base + "/edit/" + strconv.FormatInt(id, 10)
}

func contactFromForm(c *gin.Context) contacts.Contact {
	contact := contacts.Contact{Name: c.PostForm("name"), Email: c.PostForm("email")}
	contact.Normalize()
	return contact
}

func contactID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}
