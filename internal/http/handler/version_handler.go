package handler

import (
	"net/http"

	"github.com/crewsight/crewsight/internal/http/response"
)

// Build info is stamped at link time via -ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

func VersionInfo(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, map[string]string{
		"version": Version,
		"commit":  Commit,
	})
}
