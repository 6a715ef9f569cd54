package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/faeln1/second-brain/internal/app/services"
	"github.com/faeln1/second-brain/internal/domain/summary"
)

const maxSummaryBody = 64 << 10

// SummaryService is what the summary endpoints need from the pipeline.
type SummaryService interface {
	Generate(ctx context.Context, req summary.Request) (*summary.GroupSummaryData, error)
	History(ctx context.Context, groupID, keyword string, limit int) ([]summary.Record, error)
}

type SummaryController struct {
	service SummaryService
}

func NewSummaryController(s SummaryService) *SummaryController {
	return &SummaryController{service: s}
}

// Generate handles POST /summaries/group.
func (c *SummaryController) Generate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	var in summary.Request
	dec := json.NewDecoder(io.LimitReader(r.Body, maxSummaryBody))
	if err := dec.Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %v", services.ErrInvalidInput, err))
		return
	}
	out, err := c.service.Generate(r.Context(), in)
	if err != nil {
		writeError(w, mapSummaryStatus(err), err)
		return
	}
	writeData(w, http.StatusOK, out)
}

// History handles GET /summaries/group/{groupId}/history?keyword=&limit=.
func (c *SummaryController) History(w http.ResponseWriter, r *http.Request, groupID string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("%w: limit", ErrInvalidParam))
			return
		}
		limit = n
	}
	recs, err := c.service.History(r.Context(), groupID, r.URL.Query().Get("keyword"), limit)
	if err != nil {
		writeError(w, mapSummaryStatus(err), err)
		return
	}
	writeData(w, http.StatusOK, recs)
}

func mapSummaryStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, ErrInvalidParam):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrGroupNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
