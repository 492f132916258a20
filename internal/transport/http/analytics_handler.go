package http

import (
	"net/http"
	"time"

	"github.com/IgorGrieder/tinylink/internal/constants"
	"github.com/IgorGrieder/tinylink/internal/processing/analytics"
	"github.com/IgorGrieder/tinylink/pkg/httputils"
)

type AnalyticsHandler struct {
	svc AnalyticsService
}

func NewAnalyticsHandler(svc AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

type statsResponse struct {
	Code         string                    `json:"code"`
	TargetURL    string                    `json:"target_url"`
	TotalClicks  int64                     `json:"total_clicks"`
	CreatedAt    time.Time                 `json:"created_at"`
	LastClicked  *time.Time                `json:"last_clicked,omitempty"`
	ClickHistory []analytics.DailyCount    `json:"click_history"`
	TopReferrers []analytics.ReferrerCount `json:"top_referrers"`
	Devices      analytics.DeviceBreakdown `json:"devices"`
}

func (h *AnalyticsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	code, ok := pathCode(w, r)
	if !ok {
		return
	}

	stats, err := h.svc.LinkStats(r.Context(), code)
	if err != nil {
		writeServiceError(w, r, err, "link stats", code)
		return
	}

	httputils.WriteAPISuccess(w, r, constants.SuccessStatsFound, statsResponse{
		Code:         stats.Link.Code,
		TargetURL:    stats.Link.TargetURL,
		TotalClicks:  stats.Link.TotalClicks,
		CreatedAt:    stats.Link.CreatedAt,
		LastClicked:  stats.Link.LastClicked,
		ClickHistory: stats.ClickHistory,
		TopReferrers: stats.TopReferrers,
		Devices:      stats.Devices,
	})
}

func (h *AnalyticsHandler) Export(w http.ResponseWriter, r *http.Request) {
	code, ok := pathCode(w, r)
	if !ok {
		return
	}

	body, err := h.svc.ExportCSV(r.Context(), code)
	if err != nil {
		writeServiceError(w, r, err, "export clicks", code)
		return
	}
	httputils.WriteAttachment(w, r, "text/csv; charset=utf-8", code+"-clicks.csv", body)
}

func (h *AnalyticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.GlobalSummary(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "global summary", "")
		return
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessSummaryFound, summary)
}
