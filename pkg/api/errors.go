package api

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/tripforge/itineraryd/pkg/model"
)

// mapDomainError maps a model/engine/orchestrator-layer error into the HTTP
// status codes spec §6.1 prescribes: 400 validation, 404 not found, 409
// conflict, 500 for anything unrecognized.
func mapDomainError(err error) error {
	switch {
	case errors.Is(err, model.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		slog.Error("unhandled domain error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
