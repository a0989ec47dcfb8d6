package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldline/casework-api/internal/domain"
	"github.com/fieldline/casework-api/internal/service"
)

type TaskHandler struct {
	pipelineService *service.PipelineService
	logger          *zap.Logger
}

func NewTaskHandler(pipelineService *service.PipelineService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		pipelineService: pipelineService,
		logger:          logger,
	}
}

// @Summary Get task
// @Tags Tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} domain.TaskDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /tasks/{id} [get]
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid task ID")
		return
	}

	task, err := h.pipelineService.GetTask(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// @Summary List case tasks
// @Tags Tasks
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {array} domain.TaskDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /cases/{id}/tasks [get]
func (h *TaskHandler) ListByCase(w http.ResponseWriter, r *http.Request) {
	caseID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid case ID")
		return
	}

	tasks, err := h.pipelineService.ListByCase(r.Context(), caseID)
	if err != nil {
		h.logger.Error("failed to list case tasks", zap.Error(err), zap.String("case_id", caseID.String()))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, tasks)
}

// @Summary List my tasks
// @Description Returns open tasks assigned to the authenticated user.
// @Tags Tasks
// @Produce json
// @Success 200 {array} domain.TaskDTO
// @Security BearerAuth
// @Router /tasks/my [get]
func (h *TaskHandler) ListMy(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.pipelineService.ListMyTasks(r.Context())
	if err != nil {
		h.logger.Error("failed to list my tasks", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, tasks)
}

// @Summary Start task
// @Description Moves a pending task to started and stamps the start time.
// @Description Starting an already started task is a no-op success.
// @Tags Tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} domain.TaskDTO
// @Failure 409 {object} domain.APIError "Task is already completed"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /tasks/{id}/start [post]
func (h *TaskHandler) Start(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid task ID")
		return
	}

	task, err := h.pipelineService.StartTask(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to start task", zap.Error(err), zap.String("task_id", id.String()))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// @Summary Complete task
// @Description Marks the task completed, creates its successor task with the
// @Description computed deadline and advances the case status, all in one
// @Description transaction. Completing an already completed task is a no-op
// @Description success and creates nothing.
// @Tags Tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param request body domain.CompleteTaskRequest false "Completion report"
// @Success 200 {object} domain.TaskDTO
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /tasks/{id}/complete [post]
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid task ID")
		return
	}

	var req domain.CompleteTaskRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
			return
		}
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	task, err := h.pipelineService.CompleteTask(r.Context(), id, &req)
	if err != nil {
		h.logger.Error("failed to complete task", zap.Error(err), zap.String("task_id", id.String()))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, task)
}
