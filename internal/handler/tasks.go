package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sysu-ecnc-dev/task-tracker/backend/internal/domain"
)

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string  `json:"title" validate:"required"`
		Description string  `json:"description"`
		AssigneeIDs []int64 `json:"assigneeIDs"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	task, err := h.service.CreateTask(h.principal(r), req.Title, req.Description, req.AssigneeIDs)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "创建任务成功", task)
}

func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	filter := domain.TaskFilter(r.URL.Query().Get("filter"))
	if filter == "" {
		filter = domain.TaskFilterAll
	}

	views, err := h.service.ListTasks(h.principal(r), filter)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取任务列表成功", views)
}

func (h *Handler) ListTasksByUsername(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	views, err := h.service.ListTasksByUsername(h.principal(r), username)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取任务列表成功", views)
}

func (h *Handler) ListTasksByLastName(w http.ResponseWriter, r *http.Request) {
	prefix := chi.URLParam(r, "prefix")

	views, err := h.service.ListTasksByLastNamePrefix(h.principal(r), prefix)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取任务列表成功", views)
}

func (h *Handler) ToggleAssignment(w http.ResponseWriter, r *http.Request) {
	taskID, err := h.taskIDParam(r)
	if err != nil {
		h.errorResponse(w, r, "任务ID无效")
		return
	}

	task, err := h.service.ToggleAssignment(h.principal(r), taskID)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "更新任务状态成功", task)
}

func (h *Handler) AddAssignee(w http.ResponseWriter, r *http.Request) {
	taskID, err := h.taskIDParam(r)
	if err != nil {
		h.errorResponse(w, r, "任务ID无效")
		return
	}

	var req struct {
		UserID int64 `json:"userID" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	task, err := h.service.AddAssignee(h.principal(r), taskID, req.UserID)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	// 通知新的执行人
	assignee, err := h.repository.GetUserByID(req.UserID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	mailMessage := domain.MailMessage{
		Type: "task_assigned",
		To:   assignee.Email,
		Data: domain.TaskAssignedMailData{
			FullName:  assignee.FullName,
			TaskTitle: task.Title,
		},
	}

	if err := h.publishMail(mailMessage); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "分配任务成功", task)
}

func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := h.taskIDParam(r)
	if err != nil {
		h.errorResponse(w, r, "任务ID无效")
		return
	}

	if err := h.service.DeleteTask(h.principal(r), taskID); err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除任务成功", nil)
}

func (h *Handler) taskIDParam(r *http.Request) (int64, error) {
	taskID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, errors.New("任务ID无效")
	}
	return taskID, nil
}
