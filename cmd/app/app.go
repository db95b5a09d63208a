package main

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"
	"github.com/wichananm65/medicare-backend/internal/config"
	"github.com/wichananm65/medicare-backend/internal/healthcard"
	"github.com/wichananm65/medicare-backend/internal/middleware"
	"github.com/wichananm65/medicare-backend/internal/upload"
	"github.com/wichananm65/medicare-backend/internal/user"
)

// newApp wires the services onto a Fiber app. Bodies between the photo cap and
// the body limit are rejected by the upload store; larger ones by the server,
// which errorHandler reports the same way.
func newApp(cfg *config.Config, logger zerolog.Logger, s stores, mail healthcard.Mailer) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit:             int(upload.MaxPhotoSize) + 1<<20,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	app.Use(fiberrecover.New())
	app.Use(requestid.New())
	app.Use(middleware.Logger(logger))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// make uploaded photos public
	app.Static(cfg.UploadURL, cfg.UploadDir)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	userService := user.NewService(s.accounts)
	cardService := healthcard.NewService(
		s.cards,
		upload.NewStore(cfg.UploadDir, cfg.UploadURL),
		userService,
		mail,
		healthcard.Options{
			LoginURL:   cfg.LoginURL,
			Production: cfg.IsProduction(),
			Logger:     logger,
		},
	)

	api := app.Group("/api")
	healthcard.NewHandler(cardService).RegisterRoutes(api)
	user.NewHandler(userService, cfg.JWTSecret).RegisterRoutes(api)
	return app
}

// errorHandler reports a request body over the server limit as an oversized
// photo, the only large part a client sends.
func errorHandler(c *fiber.Ctx, err error) error {
	if errors.Is(err, fiber.ErrRequestEntityTooLarge) {
		tooLarge := healthcard.PhotoTooLarge()
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": tooLarge.Message, "fields": tooLarge.Fields})
	}
	return fiber.DefaultErrorHandler(c, err)
}
