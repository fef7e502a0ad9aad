package server

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/leandroluk/golem-admin/core"
)

// queryArray reads a repeated parameter sent either as name[] or name.
func queryArray(c *gin.Context, name string) []string {
	if values := c.QueryArray(name + "[]"); len(values) > 0 {
		return values
	}
	return c.QueryArray(name)
}

// listRequest reads a listing request from the query string:
//
//	q        free-text search
//	id       restrict to one record
//	qk[]     field paths, qb[] operators and qv[] values, one filter row per index
//	all_any  all or any
//	o, d     sort field and direction
func (s *Server) listRequest(c *gin.Context, model string) (core.ListRequest, error) {
	request := core.ListRequest{
		Model:    model,
		ID:       c.Query("id"),
		Query:    c.Query("q"),
		Order:    c.Query("o"),
		Location: s.location,
	}

	mode, err := core.ParseMode(c.Query("all_any"))
	if err != nil {
		return core.ListRequest{}, err
	}
	request.Mode = mode

	if raw := c.Query("d"); raw != "" {
		direction, err := core.ParseDirection(raw)
		if err != nil {
			return core.ListRequest{}, err
		}
		request.Direction = direction
	}

	keyList, operatorList, valueList := queryArray(c, "qk"), queryArray(c, "qb"), queryArray(c, "qv")
	if len(keyList) != len(operatorList) || len(keyList) != len(valueList) {
		return core.ListRequest{}, fmt.Errorf("%w: qk, qb and qv must have the same length (%d, %d, %d)",
			core.ErrInvalidValue, len(keyList), len(operatorList), len(valueList))
	}
	for i, fieldPath := range keyList {
		op, err := core.ParseFilterOperator(operatorList[i])
		if err != nil {
			return core.ListRequest{}, fmt.Errorf("filter %d (%s): %w", i, fieldPath, err)
		}
		request.Clauses = append(request.Clauses, core.FilterClause{
			FieldPath: fieldPath,
			Operator:  op,
			RawValue:  valueList[i],
		})
	}
	return request, nil
}

// pageNumber reads the 1-based page parameter; anything unreadable is page 1.
func pageNumber(c *gin.Context) int {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
