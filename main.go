package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"compras/ent"
	"compras/migrations"
	"compras/purchase"
)

func statusCode(err error) int {
	switch {
	case errors.Is(err, purchase.ErrEmptyItemSet),
		errors.Is(err, purchase.ErrTooManyItems),
		errors.Is(err, purchase.ErrMissingField),
		errors.Is(err, purchase.ErrInvalidStatus):
		return http.StatusBadRequest
	case errors.Is(err, purchase.ErrProductNotFound),
		errors.Is(err, purchase.ErrPurchaseNotFound):
		return http.StatusNotFound
	case errors.Is(err, purchase.ErrInsufficientStock),
		errors.Is(err, purchase.ErrSpendingCapExceeded),
		errors.Is(err, purchase.ErrPurchaseLocked):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func errorHandler(ctx *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return ctx.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
	}

	code := statusCode(err)
	if code == http.StatusInternalServerError {
		logrus.WithError(err).
			WithField("path", ctx.Path()).
			Error("request failed")
		return ctx.Status(code).JSON(fiber.Map{
			"message": "internal error",
			"detail":  err.Error(),
		})
	}

	return ctx.Status(code).JSON(fiber.Map{"message": err.Error()})
}

func main() {
	pgDSN := os.Getenv("POSTGRES_DSN")
	bindAddr := os.Getenv("BIND_ADDR")

	db, err := sqlx.Open("postgres", pgDSN)
	if err != nil {
		logrus.WithError(err).Fatal("failed to open DB")
	}

	err = migrations.Migrate(pgDSN)
	if err != nil {
		logrus.WithError(err).Fatal("failed to migrate")
	}

	svc := purchase.NewService(db)

	ws := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
	})

	ws.Use(recover.New(), logger.New(), cors.New())

	api := ws.Group("/api")

	api.Post("/purchases", func(ctx *fiber.Ctx) error {
		var req struct {
			UserID  *int64           `json:"user_id"`
			Status  *purchase.Status `json:"status"`
			Details []purchase.Item  `json:"details"`
		}

		err := json.Unmarshal(ctx.Body(), &req)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}

		if req.UserID == nil || req.Status == nil || req.Details == nil {
			return fiber.NewError(http.StatusBadRequest,
				"user_id, status and details are required")
		}

		id, total, err := svc.Create(ctx.Context(), *req.UserID, *req.Status, req.Details)
		if err != nil {
			return err
		}

		return ctx.Status(http.StatusCreated).JSON(fiber.Map{
			"message": "purchase created",
			"id":      id,
			"Total":   total,
		})
	})

	api.Put("/purchases/:id", func(ctx *fiber.Ctx) error {
		id, err := strconv.ParseInt(ctx.Params("id"), 10, 64)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}

		var req struct {
			UserID  *int64           `json:"user_id"`
			Status  *purchase.Status `json:"status"`
			Details []purchase.Item  `json:"details"`
		}

		err = json.Unmarshal(ctx.Body(), &req)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}

		total, err := svc.Update(ctx.Context(), id, purchase.UpdateRequest{
			UserID: req.UserID,
			Status: req.Status,
			Items:  req.Details,
		})
		if err != nil {
			return err
		}

		return ctx.JSON(fiber.Map{
			"message": "purchase updated",
			"id":      id,
			"total":   total,
		})
	})

	api.Delete("/purchases/:id", func(ctx *fiber.Ctx) error {
		id, err := strconv.ParseInt(ctx.Params("id"), 10, 64)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}

		err = svc.Delete(ctx.Context(), id)
		if err != nil {
			return err
		}

		return ctx.JSON(fiber.Map{
			"message": "purchase deleted",
		})
	})

	api.Get("/purchases", func(ctx *fiber.Ctx) error {
		ps, err := svc.List(ctx.Context())
		if err != nil {
			return err
		}
		if ps == nil {
			ps = []ent.Purchase{}
		}

		return ctx.JSON(ps)
	})

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		err := ws.Listen(bindAddr)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("failed to start web server")
		}
	}()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
	<-exit

	err = ws.Shutdown()
	if err != nil {
		logrus.WithError(err).Fatal("failed to shutdown web server")
	}

	wg.Wait()
}
