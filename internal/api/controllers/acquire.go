package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v5"

	"github.com/ipagrab/ipagrab/internal/app"
	"github.com/ipagrab/ipagrab/internal/domain"
	"github.com/ipagrab/ipagrab/internal/engine"
)

type AcquireController struct {
	App  *app.Context
	Jobs *engine.Manager
}

// HandleDownload runs one acquisition synchronously and answers with the
// artifact URL or a structured error naming the failing stage.
func (ctrl *AcquireController) HandleDownload(c *echo.Context) error {
	var req downloadRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid_request"})
	}

	if req.AppleID == "" || req.Password == "" || req.AppID == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Error:   "missing_fields",
			Details: "appleId, password and appId are required",
		})
	}

	job, err := ctrl.Jobs.Acquire(c.Request().Context(), domain.AcquireRequest{
		Email:     req.AppleID,
		Password:  req.Password,
		Code:      req.Code,
		AppID:     req.AppID,
		VersionID: req.AppVerID,
	})
	if err != nil {
		return writeAcquireError(c, err)
	}

	return c.JSON(http.StatusOK, downloadResponse{
		URL: fmt.Sprintf("/files/%s/%s", job.ID, job.FileName),
	})
}

func writeAcquireError(c *echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrTwoFactorRequired):
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: "two_factor_required", Details: err.Error()})
	case errors.Is(err, domain.ErrAuthFailed):
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: "auth_failed", Details: err.Error()})
	case errors.Is(err, domain.ErrLicenseRequired):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "license_required", Details: err.Error()})
	case errors.Is(err, domain.ErrManifestNotFound), errors.Is(err, domain.ErrSinfMissing):
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "archive_error", Details: err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "download_failed", Details: err.Error()})
	}
}

// HandleFile streams a READY job's signed archive.
func (ctrl *AcquireController) HandleFile(c *echo.Context) error {
	path, err := ctrl.Jobs.Artifact(c.Param("job"), c.Param("name"))
	if err != nil {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "not_found"})
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%s", c.Param("name")))
	http.ServeFile(c.Response(), c.Request(), path)
	return nil
}

// HandleJob answers a point-in-time snapshot of a job.
func (ctrl *AcquireController) HandleJob(c *echo.Context) error {
	snap, err := ctrl.Jobs.Job(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "not_found"})
	}

	return c.JSON(http.StatusOK, snap)
}

// HandleHistory lists recent acquisition outcomes.
func (ctrl *AcquireController) HandleHistory(c *echo.Context) error {
	if ctrl.App.History == nil {
		return c.JSON(http.StatusOK, []domain.Acquisition{})
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	items, err := ctrl.App.History.Recent(limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "history_failed"})
	}
	if items == nil {
		items = []domain.Acquisition{}
	}

	return c.JSON(http.StatusOK, items)
}
