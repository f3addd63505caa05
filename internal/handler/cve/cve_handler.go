package cve

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"neorecon/internal/core/model"
	"neorecon/internal/core/options"
	"neorecon/internal/handler"
)

// Lookuper CVE 查询 (detector.Registry，底层查询链经注入的缓存)
type Lookuper interface {
	Lookup(ctx context.Context, id string) (*model.Vulnerability, bool)
}

// CVEHandler CVE 查询处理器
type CVEHandler struct {
	lookup Lookuper
}

func NewCVEHandler(lookup Lookuper) *CVEHandler {
	return &CVEHandler{lookup: lookup}
}

// GetCVE GET /cve/:id
func (h *CVEHandler) GetCVE(c *gin.Context) {
	opts := options.CVELookupOptions{IDs: []string{c.Param("id")}}
	if err := opts.Validate(); err != nil {
		handler.Fail(c, http.StatusBadRequest, err.Error())
		return
	}
	id := opts.IDs[0]

	v, ok := h.lookup.Lookup(c.Request.Context(), id)
	if !ok {
		handler.Fail(c, http.StatusNotFound, "no information found for "+id)
		return
	}
	handler.Success(c, "ok", v)
}
