package handler

import (
	"net/http"

	"github.com/dreschagin/self-configuration/internal/application/usecase"
	"github.com/dreschagin/self-configuration/internal/interfaces/http/middleware"
	"github.com/dreschagin/self-configuration/pkg/logger"
)

// VaultAPIHandler обслуживает vault последнего профиля
type VaultAPIHandler struct {
	vaultUC *usecase.ManageVaultUseCase
	logger  *logger.Logger
}

func NewVaultAPIHandler(vaultUC *usecase.ManageVaultUseCase, log *logger.Logger) *VaultAPIHandler {
	return &VaultAPIHandler{vaultUC: vaultUC, logger: log}
}

// Stats возвращает размер vault и долю попаданий
func (h *VaultAPIHandler) Stats(w http.ResponseWriter, r *http.Request) {
	overview, err := h.vaultUC.Stats(r.Context())
	if err != nil {
		middleware.WriteError(w, statusFor(err), "failed to read vault stats")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, overview)
}

// HasItem отвечает 200 с exists=true или 404 с exists=false
func (h *VaultAPIHandler) HasItem(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	exists, err := h.vaultUC.Has(r.Context(), key)
	if err != nil {
		h.logger.Warn("Vault lookup failed", "key", key, "error", err.Error())
		middleware.WriteError(w, statusFor(err), err.Error())
		return
	}

	status := http.StatusOK
	if !exists {
		status = http.StatusNotFound
	}
	middleware.WriteJSON(w, status, map[string]interface{}{
		"key":    key,
		"exists": exists,
	})
}

// DeleteItem удаляет ключ
func (h *VaultAPIHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.vaultUC.Delete(r.Context(), r.PathValue("key")); err != nil {
		middleware.WriteError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Clear удаляет все ключи и закешированные insights
func (h *VaultAPIHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.vaultUC.Clear(r.Context()); err != nil {
		middleware.WriteError(w, statusFor(err), "failed to clear vault")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
