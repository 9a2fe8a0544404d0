package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avdeyev/go-task-tracker/internal/models"
	"github.com/avdeyev/go-task-tracker/internal/query"
	"github.com/avdeyev/go-task-tracker/internal/services"
)

type taskResponse struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Title           string          `json:"title"`
	Description     *string         `json:"description"`
	Priority        *int            `json:"priority"`
	EstimateMinutes *int            `json:"estimate_minutes"`
	DueDate         *string         `json:"due_date"`
	ParentID        *string         `json:"parent_id"`
	Completed       bool            `json:"completed"`
	CompletedAt     *time.Time      `json:"completed_at"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Subtasks        []*taskResponse `json:"subtasks,omitempty"`
}

func newTaskResponse(task *models.Task) *taskResponse {
	return &taskResponse{
		ID:              task.ID,
		UserID:          task.UserID,
		Title:           task.Title,
		Description:     task.Description,
		Priority:        task.Priority,
		EstimateMinutes: task.EstimateMinutes,
		DueDate:         task.DueDate,
		ParentID:        task.ParentID,
		Completed:       task.Completed,
		CompletedAt:     task.CompletedAt,
		CreatedAt:       task.CreatedAt,
		UpdatedAt:       task.UpdatedAt,
	}
}

func newTaskTreeResponse(node *models.TaskTree) *taskResponse {
	resp := newTaskResponse(&node.Task)
	if node.Subtasks == nil {
		return resp
	}
	resp.Subtasks = make([]*taskResponse, 0, len(node.Subtasks))
	for _, child := range node.Subtasks {
		resp.Subtasks = append(resp.Subtasks, newTaskTreeResponse(child))
	}
	return resp
}

type paginationResponse struct {
	Total        int  `json:"total"`
	TotalPages   int  `json:"total_pages"`
	FirstPage    int  `json:"first_page"`
	LastPage     int  `json:"last_page"`
	Page         int  `json:"page"`
	PreviousPage *int `json:"previous_page"`
	NextPage     *int `json:"next_page"`
}

func newPaginationResponse(meta query.Pagination) paginationResponse {
	return paginationResponse{
		Total:        meta.Total,
		TotalPages:   meta.TotalPages,
		FirstPage:    meta.FirstPage,
		LastPage:     meta.LastPage,
		Page:         meta.Page,
		PreviousPage: meta.PreviousPage,
		NextPage:     meta.NextPage,
	}
}

type listTasksResponse struct {
	Items []*taskResponse    `json:"items"`
	Meta  paginationResponse `json:"meta"`
}

type createTaskRequest struct {
	Title           string  `json:"title" binding:"required,max=255"`
	Description     *string `json:"description"`
	Priority        *int    `json:"priority" binding:"omitempty,min=1,max=5"`
	EstimateMinutes *int    `json:"estimate_minutes" binding:"omitempty,min=0"`
	DueDate         *string `json:"due_date"`
	ParentID        *string `json:"parent_id"`
	Completed       bool    `json:"completed"`
}

func (h *handlerImpl) HandleCreateTask(c *gin.Context) {
	userID, ok := h.userIDFromContext(c)
	if !ok {
		return
	}

	var req createTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Warn().
			Err(err).
			Msg("failed to bind request body")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	task, err := h.tasks.CreateTask(c, services.CreateTaskParams{
		UserID:          userID,
		Title:           req.Title,
		Description:     req.Description,
		Priority:        req.Priority,
		EstimateMinutes: req.EstimateMinutes,
		DueDate:         req.DueDate,
		ParentID:        req.ParentID,
		Completed:       req.Completed,
	})
	if err != nil {
		h.logger.Warn().
			Err(err).
			Msg("failed to create task")
		abortTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newTaskResponse(task))
}

type listTasksRequest struct {
	Q         string  `form:"q"`
	Completed *bool   `form:"completed"`
	Priority  *int    `form:"priority" binding:"omitempty,min=1,max=5"`
	DueBefore string  `form:"due_before"`
	DueAfter  string  `form:"due_after"`
	ParentID  *string `form:"parent_id"`
	SortBy    string  `form:"sort_by" binding:"omitempty,oneof=created_at updated_at due_date priority estimate_minutes title"`
	SortOrder string  `form:"sort_order" binding:"omitempty,oneof=asc desc"`
	Page      int     `form:"page,default=1" binding:"omitempty,min=1"`
	PageSize  int     `form:"page_size,default=20" binding:"omitempty,min=1,max=100"`
}

func (h *handlerImpl) HandleListTasks(c *gin.Context) {
	userID, ok := h.userIDFromContext(c)
	if !ok {
		return
	}

	var req listTasksRequest
	err := c.ShouldBindQuery(&req)
	if err != nil {
		h.logger.Warn().
			Err(err).
			Msg("failed to bind query")
		abort(c, newBadRequestError(err.Error()))
		return
	}

	// parent_id omitted, empty, or "null" all mean "root tasks only".
	parentID := req.ParentID
	if parentID != nil && (*parentID == "" || *parentID == "null") {
		parentID = nil
	}

	list, err := h.tasks.ListTasks(c, userID, query.ListQuery{
		Filter: query.Filter{
			Search:    req.Q,
			Completed: req.Completed,
			Priority:  req.Priority,
			DueBefore: req.DueBefore,
			DueAfter:  req.DueAfter,
			ParentID:  parentID,
		},
		Sort: query.Sort{
			By:    req.SortBy,
			Order: req.SortOrder,
		},
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		h.logger.Warn().
			Err(err).
			Msg("failed to list tasks")
		abortTaskError(c, err)
		return
	}

	items := make([]*taskResponse, 0, len(list.Items))
	for _, task := range list.Items {
		items = append(items, newTaskResponse(task))
	}

	c.JSON(http.StatusOK, listTasksResponse{
		Items: items,
		Meta:  newPaginationResponse(list.Meta),
	})
}

func (h *handlerImpl) HandleGetTask(c *gin.Context) {
	userID, ok := h.userIDFromContext(c)
	if !ok {
		return
	}

	includeSubtasks := c.Query("include_subtasks") == "true"

	node, err := h.tasks.GetTask(c, userID, c.Param("id"), includeSubtasks)
	if err != nil {
		h.logger.Warn().
			Err(err).
			Str("task_id", c.Param("id")).
			Msg("failed to get task")
		abortTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, newTaskTreeResponse(node))
}

type updateTaskRequest struct {
	Title           models.Optional[string] `json:"title"`
	Description     models.Optional[string] `json:"description"`
	Priority        models.Optional[int]    `json:"priority"`
	EstimateMinutes models.Optional[int]    `json:"estimate_minutes"`
	DueDate         models.Optional[string] `json:"due_date"`
	ParentID        models.Optional[string] `json:"parent_id"`
	Completed       models.Optional[bool]   `json:"completed"`
}

func (h *handlerImpl) HandleUpdateTask(c *gin.Context) {
	userID, ok := h.userIDFromContext(c)
	if !ok {
		return
	}

	var req updateTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Warn().
			Err(err).
			Msg("failed to bind request body")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	task, err := h.tasks.UpdateTask(c, userID, c.Param("id"), services.UpdateTaskParams{
		Title:           req.Title,
		Description:     req.Description,
		Priority:        req.Priority,
		EstimateMinutes: req.EstimateMinutes,
		DueDate:         req.DueDate,
		ParentID:        req.ParentID,
		Completed:       req.Completed,
	})
	if err != nil {
		h.logger.Warn().
			Err(err).
			Str("task_id", c.Param("id")).
			Msg("failed to update task")
		abortTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, newTaskResponse(task))
}

func (h *handlerImpl) HandleDeleteTask(c *gin.Context) {
	userID, ok := h.userIDFromContext(c)
	if !ok {
		return
	}

	cascade := c.Query("cascade") == "true"

	err := h.tasks.DeleteTask(c, userID, c.Param("id"), cascade)
	if err != nil {
		h.logger.Warn().
			Err(err).
			Str("task_id", c.Param("id")).
			Msg("failed to delete task")
		abortTaskError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *handlerImpl) HandleCompleteTask(c *gin.Context) {
	userID, ok := h.userIDFromContext(c)
	if !ok {
		return
	}

	task, err := h.tasks.CompleteTask(c, userID, c.Param("id"))
	if err != nil {
		h.logger.Warn().
			Err(err).
			Str("task_id", c.Param("id")).
			Msg("failed to complete task")
		abortTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, newTaskResponse(task))
}
