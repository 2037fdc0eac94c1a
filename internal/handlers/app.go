package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"pdfchat-backend/internal/models"
)

type AppHandler struct {
	defaultModel string
	logoPath     string
}

func NewAppHandler(defaultModel, assetsPath, logoFile string) *AppHandler {
	return &AppHandler{
		defaultModel: defaultModel,
		logoPath:     filepath.Join(assetsPath, logoFile),
	}
}

func (h *AppHandler) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.NewAppInfo(h.defaultModel))
}

func (h *AppHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"models":        models.Catalog,
		"default_model": h.defaultModel,
	})
}

func (h *AppHandler) Logo(w http.ResponseWriter, r *http.Request) {
	info, err := os.Stat(h.logoPath)
	if err != nil || info.IsDir() {
		writeJSON(w, http.StatusNotFound, errorResp("ASSET_NOT_FOUND",
			"The file '"+filepath.Base(h.logoPath)+"' was not found. Make sure it is in the assets directory.", r))
		return
	}
	http.ServeFile(w, r, h.logoPath)
}
