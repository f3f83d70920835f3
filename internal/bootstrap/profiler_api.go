package bootstrap

import (
	"strings"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"mailprofiler/adapter/in/http"
	"mailprofiler/adapter/in/mailbox"
	"mailprofiler/config"
	"mailprofiler/core/service/pipeline"
	"mailprofiler/infra/middleware"
)

// NewAPI builds the results server over a completed run. The app is ready
// for Listen; shutdown stays with the caller.
func NewAPI(cfg *config.Config, deps *Dependencies, result *pipeline.RunResult, ingest *mailbox.Stats) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "mailprofiler",
		ErrorHandler:          middleware.ErrorHandler(),
		DisableStartupMessage: cfg.IsProduction(),

		ReadBufferSize: 16384,

		// go-json is measurably faster than encoding/json on the profile
		// payloads.
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,

		BodyLimit: 1 * 1024 * 1024,
	})

	// Order matters: recovery outermost, then request identity and logging.
	app.Use(middleware.Recover())
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:  "GET,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept,X-Request-ID",
		ExposeHeaders: "X-Request-ID",
	}))

	var pinger http.Pinger
	if deps.RedisCache != nil {
		pinger = deps.RedisCache
	}
	http.NewHealthHandler(result, pinger).Register(app)
	http.NewResultsHandler(result, ingest).Register(app)

	return app
}
