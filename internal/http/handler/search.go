package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"docmanager/internal/service"
)

// SearchDocuments godoc
// @Summary      Keyword search
// @Description  Case-insensitive substring match on title and content, newest first.
// @Tags         search
// @Produce      json
// @Param        query   query     string  true   "Keyword"
// @Param        limit   query     int     false  "Page size"
// @Param        offset  query     int     false  "Rows to skip"
// @Success      200  {object}  service.SearchResultList
// @Failure      400  {object}  errorPayload
// @Security     BearerAuth
// @Router       /api/documents/search [get]
func SearchDocuments(svc service.SearchService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, ok := pagination(c)
		if !ok {
			return nil
		}
		res, err := svc.Search(c.UserContext(), c.Query("query"), limit, offset)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// FilterDocuments godoc
// @Summary      Filter documents
// @Description  All criteria are optional and combined with AND. Date bounds are inclusive.
// @Tags         search
// @Produce      json
// @Param        author       query     string  false  "Exact author"
// @Param        contentType  query     string  false  "Media type (alias: fileType)"
// @Param        fromDate     query     string  false  "Lower bound, e.g. 2024-01-01T00:00:00"
// @Param        toDate       query     string  false  "Upper bound, e.g. 2024-01-31 23:59:59"
// @Param        limit        query     int     false  "Page size"
// @Param        offset       query     int     false  "Rows to skip"
// @Success      200  {object}  service.DocumentListResult
// @Failure      400  {object}  errorPayload
// @Security     BearerAuth
// @Router       /api/documents/filter [get]
func FilterDocuments(svc service.SearchService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, ok := pagination(c)
		if !ok {
			return nil
		}
		contentType := c.Query("contentType")
		if contentType == "" {
			contentType = c.Query("fileType")
		}
		res, err := svc.Filter(c.UserContext(), service.FilterQuery{
			Author:      c.Query("author"),
			ContentType: contentType,
			FromDate:    c.Query("fromDate"),
			ToDate:      c.Query("toDate"),
		}, limit, offset)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// pagination parses limit and offset. Absent values are 0 and resolved by
// the service. On failure the error response is already written.
func pagination(c *fiber.Ctx) (limit, offset int, ok bool) {
	var err error
	if s := c.Query("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil || limit < 0 {
			_ = writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
			return 0, 0, false
		}
	}
	if s := c.Query("offset"); s != "" {
		if offset, err = strconv.Atoi(s); err != nil || offset < 0 {
			_ = writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
			return 0, 0, false
		}
	}
	return limit, offset, true
}
