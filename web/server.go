package web

import (
	"context"
	"embed"
	"io/fs"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"
	"github.com/goliatone/go-router"
	mflash "github.com/goliatone/go-router/middleware/flash"
)

//go:embed views
var viewsFS embed.FS

// NewViewEngine loads the embedded django templates.
func NewViewEngine() (*django.Engine, error) {
	sub, err := fs.Sub(viewsFS, "views")
	if err != nil {
		return nil, err
	}
	return django.NewFileSystem(http.FS(sub), ".html"), nil
}

// Server is the go-router fiber adapter serving a Controller.
type Server struct {
	srv        router.Server[*fiber.App]
	controller *Controller
}

func NewServer(controller *Controller) (*Server, error) {
	engine, err := NewViewEngine()
	if err != nil {
		return nil, err
	}

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			Views:                 engine,
			PassLocalsToViews:     true,
			DisableStartupMessage: !controller.Debug,
		}))
	})

	r := srv.Router()
	r.Use(mflash.New(mflash.ConfigDefault))
	RegisterRoutes(r, controller)

	return &Server{srv: srv, controller: controller}, nil
}

// App returns the fiber app under the adapter.
func (s *Server) App() *fiber.App {
	return s.srv.WrappedRouter()
}

func (s *Server) Listen(addr string) error {
	return s.srv.Serve(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
