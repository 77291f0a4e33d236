package api

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	internalerrors "github.com/quickfind/go-fuzzy-engine/internal/errors"
	"github.com/quickfind/go-fuzzy-engine/services"
)

// SearchHandler performs a fuzzy path search across worktrees.
// Request Body: services.SearchQuery
func (api *API) SearchHandler(c *gin.Context) {
	var query services.SearchQuery
	if err := c.ShouldBindJSON(&query); err != nil {
		SendInvalidJSONError(c, err)
		return
	}

	if query.Page < 0 || query.PageSize < 0 || query.MaxResults < 0 {
		SendValidationError(c, []string{"page, page_size and max_results must not be negative"})
		return
	}

	// A disconnected client sets the cancel flag so the matcher bails out
	// instead of finishing a search nobody will read.
	var cancelFlag atomic.Bool
	stop := context.AfterFunc(c.Request.Context(), func() {
		cancelFlag.Store(true)
	})
	defer stop()

	result, err := api.engine.Search(query, &cancelFlag)
	if err != nil {
		if errors.Is(err, internalerrors.ErrWorktreeNotFound) {
			SendError(c, http.StatusNotFound, ErrorCodeWorktreeNotFound, err.Error())
			return
		}
		if errors.Is(err, internalerrors.ErrSearchCancelled) {
			SendSearchCancelledError(c)
			return
		}
		SendSearchError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// RecordOpenedRequest names a path the client just opened.
type RecordOpenedRequest struct {
	Path string `json:"path" binding:"required"`
}

// RecordOpenedHandler marks a path as recently opened so future searches in
// the worktree surface it first.
func (api *API) RecordOpenedHandler(c *gin.Context) {
	worktreeName := c.Param("worktreeName")

	var req RecordOpenedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendInvalidJSONError(c, err)
		return
	}

	if err := api.engine.RecordOpened(worktreeName, req.Path); err != nil {
		if errors.Is(err, internalerrors.ErrWorktreeNotFound) {
			SendWorktreeNotFoundError(c, worktreeName)
			return
		}
		if errors.Is(err, internalerrors.ErrPathNotFound) {
			SendPathNotFoundError(c, req.Path, worktreeName)
			return
		}
		SendInternalError(c, "recording opened path", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Recorded '" + req.Path + "' as recently opened in worktree '" + worktreeName + "'",
	})
}
