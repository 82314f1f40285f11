package api

import (
	"net/http"
)

// ErrorStats возвращает статистику ошибок по всем типам задач.
// GET /api/v1/errors/stats
func (h *Handler) ErrorStats(w http.ResponseWriter, r *http.Request) {
	stats := h.retries.AllStats()
	List(w, stats, len(stats))
}

// TaskErrors возвращает статистику и последние ошибки типа задачи.
// GET /api/v1/errors/{taskType}
func (h *Handler) TaskErrors(w http.ResponseWriter, r *http.Request) {
	taskType := r.PathValue("taskType")
	limit := queryInt(r, "limit", 20)

	Success(w, map[string]any{
		"stats":  h.retries.Stats(taskType),
		"recent": h.retries.RecentErrors(taskType, limit),
	})
}

// ResetTaskErrors сбрасывает накопленную статистику ошибок типа задачи.
// DELETE /api/v1/errors/{taskType}
func (h *Handler) ResetTaskErrors(w http.ResponseWriter, r *http.Request) {
	h.retries.Reset(r.PathValue("taskType"))
	NoContent(w)
}
