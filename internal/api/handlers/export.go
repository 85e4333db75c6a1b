package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jmhart/catalog-tracker/internal/export"
	"github.com/jmhart/catalog-tracker/internal/store"
	domain "github.com/jmhart/catalog-tracker/pkg/types"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportProvider defines the store methods required by the export handler.
type ExportProvider interface {
	ExportRun(ctx context.Context, runID string) ([]domain.ExportRow, error)
}

// ExportHandler serves run exports as XLSX downloads. It registers on echo
// directly because the response is a binary attachment, not JSON.
type ExportHandler struct {
	store ExportProvider
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(s ExportProvider) *ExportHandler {
	return &ExportHandler{store: s}
}

// ExportRun streams one run's change records as an XLSX workbook.
func (h *ExportHandler) ExportRun(c echo.Context) error {
	id := c.Param("id")

	rows, err := h.store.ExportRun(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, rows); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	c.Response().Header().Set(
		echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="run-%s.xlsx"`, id),
	)
	return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}

// RegisterExportRoutes registers export endpoints on the Echo instance.
func RegisterExportRoutes(e *echo.Echo, h *ExportHandler) {
	e.GET("/api/v1/runs/:id/export", h.ExportRun)
}
