package handlers

import (
	"errors"
	"net/http"
	"os"

	"home_dispatch/internal/catalog"

	"github.com/gin-gonic/gin"
)

// @Summary      Reload catalog
// @Description  Re-reads the catalog document. On failure the previous catalog stays active and the problems are reported.
// @Tags         catalog
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status, devices"
// @Failure      422  {object}  map[string]interface{}  "error, problems, devices"
// @Router       /api/v1/catalog/reload [post]
// @Security     BearerAuth
func (h *Handler) reloadCatalog(c *gin.Context) {
	n, err := h.services.Catalog.Reload(c.Request.Context())
	if err != nil {
		var le *catalog.LoadError
		if !errors.As(err, &le) {
			h.logAndJSONError(c, http.StatusInternalServerError, "failed to reload catalog", "catalog_reload_request_failed", err)
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":    err.Error(),
			"problems": le.Problems,
			"devices":  n,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusReloaded, "devices": n})
}

// @Summary      List icons
// @Tags         catalog
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "icons"
// @Failure      500  {object}  map[string]string
// @Router       /api/icons [get]
func (h *Handler) listIcons(c *gin.Context) {
	names, err := h.services.Catalog.ListIcons(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to list icons", "icons_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"icons": names})
}

// @Summary      Get icon
// @Tags         catalog
// @Produce      image/png
// @Param        name  path  string  true  "Icon file name"
// @Success      200
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/icons/{name} [get]
func (h *Handler) getIcon(c *gin.Context) {
	path, err := h.services.Catalog.IconPath(c.Param("name"))
	if err != nil {
		h.respondServiceError(c, "failed to load icon", "icon_get_failed", err, "name", c.Param("name"))
		return
	}
	st, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && st.IsDir()) {
		c.JSON(http.StatusNotFound, gin.H{"error": "icon not found"})
		return
	}
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load icon", "icon_stat_failed", err, "name", c.Param("name"))
		return
	}
	c.File(path)
}
