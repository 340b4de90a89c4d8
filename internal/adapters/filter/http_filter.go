package filter

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/mikey/email-classifier/internal/core"
	"github.com/mikey/email-classifier/internal/ports"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// HTTPOptions configures the HTTP front-end.
type HTTPOptions struct {
	ListenAddr  string
	BodyLimit   int
	ReadTimeout time.Duration
}

// HTTPFilter serves the upload form and the JSON classification API.
type HTTPFilter struct {
	service ports.Classifier
	models  ports.ModelRegistry
	logger  *zap.Logger
	opts    HTTPOptions
	app     *fiber.App
}

type pageData struct {
	Text   string
	Error  string
	Result *core.ClassificationResult
}

type classifyRequest struct {
	Text string `json:"text"`
}

// NewHTTPFilter creates the HTTP front-end and registers its routes.
func NewHTTPFilter(service ports.Classifier, models ports.ModelRegistry, logger *zap.Logger, opts HTTPOptions) *HTTPFilter {
	f := &HTTPFilter{
		service: service,
		models:  models,
		logger:  logger,
		opts:    opts,
	}
	f.app = fiber.New(fiber.Config{
		AppName:               "email-classifier",
		BodyLimit:             opts.BodyLimit,
		ReadTimeout:           opts.ReadTimeout,
		DisableStartupMessage: true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})
	f.app.Use(recover.New())
	f.routes()
	return f
}

// App exposes the fiber application.
func (f *HTTPFilter) App() *fiber.App {
	return f.app
}

func (f *HTTPFilter) routes() {
	f.app.Get("/", f.handleIndex)
	f.app.Post("/predict", f.handlePredict)
	f.app.Get("/health", f.handleHealth)
	f.app.Get("/ready", f.handleReady)

	api := f.app.Group("/api/v1")
	api.Post("/classify", f.handleClassify)
	api.Post("/model/reload", f.handleReload)
}

// Start starts listening in the background
func (f *HTTPFilter) Start() error {
	f.logger.Info("HTTP front-end starting", zap.String("address", f.opts.ListenAddr))
	go func() {
		if err := f.app.Listen(f.opts.ListenAddr); err != nil {
			f.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop shuts the server down, waiting for in-flight requests
func (f *HTTPFilter) Stop() error {
	return f.app.ShutdownWithTimeout(10 * time.Second)
}

// ProcessEmail classifies a parsed email
func (f *HTTPFilter) ProcessEmail(ctx context.Context, email *core.Email) (*core.ClassificationResult, error) {
	return f.service.ClassifyEmail(ctx, email)
}

func (f *HTTPFilter) handleIndex(c *fiber.Ctx) error {
	return f.render(c, pageData{})
}

func (f *HTTPFilter) handlePredict(c *fiber.Ctx) error {
	req, err := readRequest(c, c.FormValue("text_input"))
	if err != nil {
		return f.render(c, pageData{Error: core.UserMessage(core.NewExtractionError(err))})
	}

	result, err := f.service.Classify(c.UserContext(), req)
	if err != nil {
		f.logger.Info("Classification request rejected", zap.Error(err))
		return f.render(c, pageData{Text: req.Text, Error: core.UserMessage(err)})
	}
	return f.render(c, pageData{Text: req.Text, Result: result})
}

func (f *HTTPFilter) handleClassify(c *fiber.Ctx) error {
	var text string
	if bytes.HasPrefix(c.Request().Header.ContentType(), []byte(fiber.MIMEApplicationJSON)) {
		var body classifyRequest
		if err := c.BodyParser(&body); err != nil {
			return jsonError(c, fiber.StatusBadRequest, "JSON inválido.")
		}
		text = body.Text
	} else {
		text = c.FormValue("text")
	}

	req, err := readRequest(c, text)
	if err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, core.UserMessage(core.NewExtractionError(err)))
	}

	result, err := f.service.Classify(c.UserContext(), req)
	if err != nil {
		return jsonError(c, statusFor(err), core.UserMessage(err))
	}
	return c.JSON(result)
}

func (f *HTTPFilter) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (f *HTTPFilter) handleReady(c *fiber.Ctx) error {
	if !f.models.Ready() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "model not loaded"})
	}
	return c.JSON(fiber.Map{"status": "ready", "model": f.models.Info()})
}

func (f *HTTPFilter) handleReload(c *fiber.Ctx) error {
	if err := f.models.Load(); err != nil {
		f.logger.Warn("Model reload failed", zap.Error(err))
		return jsonError(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"status": "reloaded", "model": f.models.Info()})
}

func (f *HTTPFilter) render(c *fiber.Ctx, data pageData) error {
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, data); err != nil {
		return err
	}
	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}

// readRequest builds a request from the optional "file" upload and the given
// text. A missing upload is not an error.
func readRequest(c *fiber.Ctx, text string) (core.ClassificationRequest, error) {
	req := core.ClassificationRequest{Text: text}
	fh, err := c.FormFile("file")
	if err != nil || fh.Filename == "" {
		return req, nil
	}
	file, err := fh.Open()
	if err != nil {
		return req, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return req, err
	}
	req.FileName = fh.Filename
	req.FileData = data
	return req, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInput):
		return fiber.StatusBadRequest
	case errors.Is(err, core.ErrExtraction):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

func jsonError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}
