package controllers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/poofware/todo-service/internal/dtos"
	"github.com/poofware/todo-service/internal/services"
	"github.com/poofware/todo-service/shared/go-utils"
)

type TaskController struct {
	taskService services.TaskService
}

func NewTaskController(taskService services.TaskService) *TaskController {
	return &TaskController{taskService: taskService}
}

func (c *TaskController) ListCurrent(w http.ResponseWriter, r *http.Request) {
	c.list(w, r, false)
}

func (c *TaskController) ListCompleted(w http.ResponseWriter, r *http.Request) {
	c.list(w, r, true)
}

func (c *TaskController) list(w http.ResponseWriter, r *http.Request, completed bool) {
	owner, ok := currentAccountID(w, r)
	if !ok {
		return
	}
	page, err := utils.ParsePageRequest(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}

	tasks, total, err := c.taskService.List(r.Context(), owner, completed, page)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.BuildPage(r, page, total, dtos.NewTaskResponses(tasks)))
}

func (c *TaskController) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := currentAccountID(w, r)
	if !ok {
		return
	}
	var req dtos.TaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := c.taskService.Create(r.Context(), owner, fullChanges(req))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, dtos.NewTaskResponse(task))
}

func (c *TaskController) Detail(w http.ResponseWriter, r *http.Request) {
	owner, ok := currentAccountID(w, r)
	if !ok {
		return
	}
	id, ok := taskIDFromPath(w, r)
	if !ok {
		return
	}

	task, err := c.taskService.Get(r.Context(), owner, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.NewTaskResponse(task))
}

// Update replaces title and memo on PUT and applies only the given fields
// on PATCH.
func (c *TaskController) Update(w http.ResponseWriter, r *http.Request) {
	owner, ok := currentAccountID(w, r)
	if !ok {
		return
	}
	id, ok := taskIDFromPath(w, r)
	if !ok {
		return
	}

	var changes services.TaskChanges
	if r.Method == http.MethodPatch {
		var req dtos.TaskPatchRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}
		changes = services.TaskChanges{
			Title:       req.Title,
			Memo:        req.Memo,
			Important:   req.Important,
			IsCompleted: req.IsCompleted,
		}
	} else {
		var req dtos.TaskRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}
		changes = fullChanges(req)
	}

	task, err := c.taskService.Update(r.Context(), owner, id, changes)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.NewTaskResponse(task))
}

func (c *TaskController) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := currentAccountID(w, r)
	if !ok {
		return
	}
	id, ok := taskIDFromPath(w, r)
	if !ok {
		return
	}

	if err := c.taskService.Delete(r.Context(), owner, id); err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.DetailResponse{Detail: "You successfully deleted your task"})
}

func (c *TaskController) Complete(w http.ResponseWriter, r *http.Request) {
	owner, ok := currentAccountID(w, r)
	if !ok {
		return
	}
	id, ok := taskIDFromPath(w, r)
	if !ok {
		return
	}

	task, err := c.taskService.Complete(r.Context(), owner, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.NewTaskResponse(task))
}

func fullChanges(req dtos.TaskRequest) services.TaskChanges {
	return services.TaskChanges{
		Title:       utils.Ptr(req.Title),
		Memo:        utils.Ptr(req.Memo),
		Important:   req.Important,
		IsCompleted: req.IsCompleted,
	}
}

func taskIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id < 1 {
		utils.RespondErrorWithCode(w, http.StatusNotFound, utils.ErrCodeNotFound, "Task not found", nil, err)
		return 0, false
	}
	return id, true
}
