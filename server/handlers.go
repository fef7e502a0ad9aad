package server

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/leandroluk/golem-admin/core"
	"github.com/leandroluk/golem-admin/logger"
)

// fail maps err to a status: request mistakes are 400, unknown models and
// records 404, anything else 500 without details.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrUnknownModel), errors.Is(err, core.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case core.IsClientError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.FromContext(c.Request.Context(), s.logger).ErrorContext(c.Request.Context(), "request failed",
			slog.String("path", c.Request.URL.Path), slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (s *Server) resource(name string) (*core.Resource, error) {
	model, err := s.compiler.Catalog().Model(name)
	if err != nil {
		return nil, err
	}
	return core.NewResource(model, s.compiler.Driver(), s.pipeline), nil
}

// index lists a model: GET /index/:model?format=json|csv.
func (s *Server) index(c *gin.Context) {
	ctx := c.Request.Context()
	request, err := s.listRequest(c, c.Param("model"))
	if err != nil {
		s.fail(c, err)
		return
	}
	result, err := s.compiler.List(ctx, request)
	if err != nil {
		s.fail(c, err)
		return
	}

	switch c.DefaultQuery("format", "json") {
	case "csv":
		documents, err := result.All(ctx)
		if err != nil {
			s.fail(c, err)
			return
		}
		var buf bytes.Buffer
		if err := s.writeCSV(ctx, &buf, result.Model(), documents); err != nil {
			s.fail(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="`+result.Model().Collection+`.csv"`)
		c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
	case "json":
		page, err := result.Page(ctx, pageNumber(c), s.perPage)
		if err != nil {
			s.fail(c, err)
			return
		}
		resultList := make([]map[string]any, 0, len(page.Documents))
		for _, document := range page.Documents {
			resultList = append(resultList, plainDocument(document))
		}
		c.JSON(http.StatusOK, gin.H{
			"results":     resultList,
			"page":        page.Number,
			"per_page":    page.PerPage,
			"total":       page.Total,
			"total_pages": page.TotalPages(),
		})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be json or csv"})
	}
}

// lookup serves autocomplete entries: GET /lookup/:model?q=.
func (s *Server) lookup(c *gin.Context) {
	ctx := c.Request.Context()
	result, err := s.compiler.List(ctx, core.ListRequest{
		Model:    c.Param("model"),
		Query:    c.Query("q"),
		Location: s.location,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	page, err := result.Page(ctx, 1, s.perPage)
	if err != nil {
		s.fail(c, err)
		return
	}
	model := result.Model()
	resultList := make([]gin.H, 0, len(page.Documents))
	for _, document := range page.Documents {
		resultList = append(resultList, gin.H{
			"id":   plainValue(document[model.IDField]),
			"text": displayText(model, document),
		})
	}
	c.JSON(http.StatusOK, gin.H{"results": resultList})
}

func bindDocument(c *gin.Context) (core.Document, error) {
	var input core.Document
	if err := c.ShouldBindJSON(&input); err != nil {
		return nil, errors.Join(core.ErrInvalidValue, err)
	}
	return input, nil
}

// create inserts a record: POST /new/:model.
func (s *Server) create(c *gin.Context) {
	resource, err := s.resource(c.Param("model"))
	if err != nil {
		s.fail(c, err)
		return
	}
	input, err := bindDocument(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	document, err := resource.Create(c.Request.Context(), input)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"result": plainDocument(document)})
}

// update changes a record: POST /edit/:model/:id.
func (s *Server) update(c *gin.Context) {
	resource, err := s.resource(c.Param("model"))
	if err != nil {
		s.fail(c, err)
		return
	}
	input, err := bindDocument(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	document, err := resource.Update(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": plainDocument(document)})
}

// destroy deletes a record: POST /destroy/:model/:id.
func (s *Server) destroy(c *gin.Context) {
	resource, err := s.resource(c.Param("model"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := resource.Destroy(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
}
