package webserver

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Meta struct {
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

type Response struct {
	Data interface{} `json:"data"`
	Meta *Meta       `json:"meta,omitempty"`
}

type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func OK(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{Data: data})
}

func Paged(c echo.Context, data interface{}, total int64, page, pageSize int) error {
	return c.JSON(http.StatusOK, Response{Data: data, Meta: &Meta{Total: total, Page: page, PageSize: pageSize}})
}

func Fail(c echo.Context, status int, code, message string, details interface{}) error {
	return c.JSON(status, ErrorResponse{Error: code, Message: message, Details: details})
}

// ValidationFailed reports the failing fields of a validator error
func ValidationFailed(c echo.Context, err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return Fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request parameters", err.Error())
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return Fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request parameters", fields)
}

// ParsePagination reads page and pageSize (or perPage), capped at 500
func ParsePagination(c echo.Context) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(c.QueryParam("pageSize"))
	if size <= 0 {
		size, _ = strconv.Atoi(c.QueryParam("perPage"))
	}
	if size <= 0 {
		size = 20
	}
	if size > 500 {
		size = 500
	}
	return page, size
}
