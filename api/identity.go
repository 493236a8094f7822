package api

import (
	"net/http"
	"strconv"

	"github.com/Domenick1991/skyreserve/internal/pagination"
	"github.com/gin-gonic/gin"
)

// Identity arrives from the gateway in plain headers.
const (
	HeaderUserID  = "user-id"
	HeaderAdminID = "admin-id"
)

func headerID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.GetHeader(name), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "missing or invalid " + name + " header"})
		return 0, false
	}
	return id, true
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

func queryInt64(c *gin.Context, name string) (int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func pageRequest(c *gin.Context) (pagination.Request, bool) {
	page, ok := queryInt64(c, "page")
	if !ok {
		return pagination.Request{}, false
	}
	perPage, ok := queryInt64(c, "per_page")
	if !ok {
		return pagination.Request{}, false
	}
	return pagination.Request{Page: int(page), PerPage: int(perPage)}.Normalize(), true
}
