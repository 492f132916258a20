package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/IgorGrieder/tinylink/internal/config"
	"github.com/IgorGrieder/tinylink/internal/constants"
	"github.com/IgorGrieder/tinylink/internal/infrastructure/logger"
	appvalidation "github.com/IgorGrieder/tinylink/internal/infrastructure/validation"
	"github.com/IgorGrieder/tinylink/internal/processing/links"
	"github.com/IgorGrieder/tinylink/internal/transport/http/middleware"
	"github.com/IgorGrieder/tinylink/pkg/httputils"
	"go.uber.org/zap"
)

const (
	defaultSuggestions = 5
	maxSuggestions     = 10
)

// Codes that would be shadowed by fixed routes.
var reservedCodes = map[string]struct{}{
	"health":  {},
	"healthz": {},
	"metrics": {},
}

type LinksHandler struct {
	cfg     *config.Config
	svc     LinkService
	clients *middleware.ClientResolver
}

func NewLinksHandler(cfg *config.Config, svc LinkService, clients *middleware.ClientResolver) *LinksHandler {
	return &LinksHandler{cfg: cfg, svc: svc, clients: clients}
}

type createLinkRequest struct {
	TargetURL string `json:"target_url" validate:"required,notblank,http_url"`
	Code      string `json:"code,omitempty" validate:"short_code"`
	OwnerID   string `json:"owner_id,omitempty" validate:"omitempty,max=255"`
}

type linkResponse struct {
	Code        string     `json:"code"`
	TargetURL   string     `json:"target_url"`
	ShortURL    string     `json:"short_url"`
	CreatedAt   time.Time  `json:"created_at"`
	TotalClicks int64      `json:"total_clicks"`
	LastClicked *time.Time `json:"last_clicked,omitempty"`
	OwnerID     string     `json:"owner_id,omitempty"`
	Status      string     `json:"status,omitempty"`
}

type suggestionsResponse struct {
	Codes []string `json:"codes"`
}

func (h *LinksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputils.WriteAPIError(w, r, constants.ErrInvalidRequestBody)
		return
	}
	req.TargetURL = appvalidation.SanitizeURL(req.TargetURL)
	req.Code = strings.TrimSpace(req.Code)

	if err := appvalidation.Validate(req); err != nil {
		apiErr := constants.ErrInvalidRequestBody
		switch appvalidation.FirstInvalidField(err) {
		case "target_url":
			apiErr = constants.ErrInvalidURL
		case "code":
			apiErr = constants.ErrInvalidCode
		case "owner_id":
			apiErr = apiErr.WithMessage("owner_id must be at most 255 characters")
		}
		httputils.WriteAPIError(w, r, apiErr)
		return
	}
	if _, ok := reservedCodes[req.Code]; ok {
		httputils.WriteAPIError(w, r, constants.ErrCodeConflict)
		return
	}

	result, err := h.svc.CreateLink(r.Context(), links.CreateLinkInput{
		Code:      req.Code,
		TargetURL: req.TargetURL,
		OwnerID:   req.OwnerID,
	})
	if err != nil {
		writeServiceError(w, r, err, "create link", req.Code)
		return
	}

	linksCreatedTotal.WithLabelValues(string(result.Status)).Inc()
	if appvalidation.IsSuspiciousDomain(result.Link.TargetURL) {
		logger.Warn("link created with suspicious target", zap.String("code", result.Link.Code))
	}

	success := constants.SuccessLinkCreated
	if result.Status == links.StatusReactivated {
		success = constants.SuccessLinkReactivated
	}
	resp := h.toResponse(result.Link)
	resp.Status = string(result.Status)
	httputils.WriteAPISuccess(w, r, success, resp)
}

func (h *LinksHandler) List(w http.ResponseWriter, r *http.Request) {
	all, err := h.svc.ListLinks(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "list links", "")
		return
	}

	out := make([]linkResponse, 0, len(all))
	for i := range all {
		out = append(out, h.toResponse(&all[i]))
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessLinksListed, out)
}

func (h *LinksHandler) Get(w http.ResponseWriter, r *http.Request) {
	code, ok := pathCode(w, r)
	if !ok {
		return
	}

	link, err := h.svc.GetLink(r.Context(), code)
	if err != nil {
		writeServiceError(w, r, err, "get link", code)
		return
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessLinkFound, h.toResponse(link))
}

func (h *LinksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	code, ok := pathCode(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteLink(r.Context(), code); err != nil {
		writeServiceError(w, r, err, "delete link", code)
		return
	}
	w.Header().Set(httputils.CorrelationIDHeader, httputils.GetCorrelationID(r))
	w.WriteHeader(http.StatusNoContent)
}

func (h *LinksHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	count := defaultSuggestions
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxSuggestions {
			httputils.WriteAPIError(w, r, constants.ErrInvalidRequestBody.WithMessage("count must be between 1 and 10"))
			return
		}
		count = n
	}

	length := 0
	if raw := r.URL.Query().Get("length"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < links.MinCodeLength || n > links.MaxCodeLength {
			httputils.WriteAPIError(w, r, constants.ErrInvalidRequestBody.WithMessage("length must be between 6 and 8"))
			return
		}
		length = n
	}

	codes, err := h.svc.SuggestCodes(r.Context(), count, length)
	if err != nil {
		writeServiceError(w, r, err, "suggest codes", "")
		return
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessSuggestionsFound, suggestionsResponse{Codes: codes})
}

// Redirect resolves the code and records the click before answering, so a
// redirect is only sent for a click that was stored.
func (h *LinksHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	target, err := h.svc.Resolve(r.Context(), code, links.ClickInput{
		Referrer:  r.Header.Get("Referer"),
		UserAgent: r.Header.Get("User-Agent"),
		IPAddress: h.clients.IP(r),
	})
	if err != nil {
		if errors.Is(err, links.ErrNotFound) {
			redirectsTotal.WithLabelValues(redirectNotFound).Inc()
			http.NotFound(w, r)
			return
		}
		redirectsTotal.WithLabelValues(redirectError).Inc()
		writeServiceError(w, r, err, "redirect", code)
		return
	}

	redirectsTotal.WithLabelValues(redirectFound).Inc()
	http.Redirect(w, r, target, h.cfg.Shortener.RedirectStatus)
}

func (h *LinksHandler) toResponse(link *links.Link) linkResponse {
	return linkResponse{
		Code:        link.Code,
		TargetURL:   link.TargetURL,
		ShortURL:    strings.TrimRight(h.cfg.Shortener.BaseURL, "/") + "/" + link.Code,
		CreatedAt:   link.CreatedAt,
		TotalClicks: link.TotalClicks,
		LastClicked: link.LastClicked,
		OwnerID:     link.OwnerID,
	}
}

// pathCode reads the {code} path value and answers 400 when it is not a
// well-formed code.
func pathCode(w http.ResponseWriter, r *http.Request) (string, bool) {
	code := r.PathValue("code")
	if !appvalidation.IsValidCode(code) {
		httputils.WriteAPIError(w, r, constants.ErrInvalidCode)
		return "", false
	}
	return code, true
}
