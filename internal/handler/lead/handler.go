package lead

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	model "github.com/zhouzirui/tgl-chat/backend/internal/model/lead"
	leadservice "github.com/zhouzirui/tgl-chat/backend/internal/service/lead"
	leadstore "github.com/zhouzirui/tgl-chat/backend/internal/store/lead"
	"github.com/zhouzirui/tgl-chat/backend/pkg/utils"
)

// Handler 线索收集的HTTP处理器
type Handler struct {
	store  leadstore.Store
	logger *zap.Logger
}

// New 创建线索处理器
func New(store leadstore.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// RegisterRoutes 注册线索相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/contact", h.handleContact)
	r.Get("/leads", h.handleListLeads)
}

func (h *Handler) handleContact(w http.ResponseWriter, r *http.Request) {
	var payload model.Lead
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	payload = leadservice.Normalize(payload)
	if err := leadservice.Validate(payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.store.Add(r.Context(), payload)
	if err != nil {
		h.logger.Error("store lead failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to store lead")
		return
	}

	h.logger.Info("lead received", zap.String("id", rec.ID), zap.String("subject", rec.Subject))
	utils.RespondJSON(w, http.StatusCreated, rec)
}

func (h *Handler) handleListLeads(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("list leads failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to list leads")
		return
	}
	if records == nil {
		records = []model.Record{}
	}
	utils.RespondJSON(w, http.StatusOK, records)
}
