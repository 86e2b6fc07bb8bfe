package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/railmadad/backend/internal/apperrors"
	"github.com/railmadad/backend/internal/models"
	"github.com/railmadad/backend/internal/service"
)

type CreateComplaintResponse struct {
	ComplaintID string           `json:"complaintId"`
	Message     string           `json:"message"`
	Complaint   models.Complaint `json:"complaint"`
}

type ComplaintListResponse struct {
	Complaints []models.Complaint `json:"complaints"`
	Pagination Pagination         `json:"pagination"`
}

// @Summary Submit a complaint
// @Tags complaints
// @Accept multipart/form-data
// @Produce json
// @Param pnrNumber formData string true "10 digit PNR"
// @Param description formData string true "What went wrong"
// @Param categoryId formData string false "Category ID"
// @Param latitude formData number false "Reporter latitude, used to suggest the station"
// @Param longitude formData number false "Reporter longitude"
// @Param files formData file false "Photos, video or audio"
// @Success 201 {object} CreateComplaintResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/complaints [post]
func (h *Handler) CreateComplaint(c *gin.Context) {
	var req service.SubmitRequest
	if strings.HasPrefix(c.ContentType(), "application/json") {
		if !h.bindJSON(c, &req) {
			return
		}
	} else {
		req = service.SubmitRequest{
			PNRNumber:   c.PostForm("pnrNumber"),
			CategoryID:  c.PostForm("categoryId"),
			Description: c.PostForm("description"),
			TrainInfo: models.TrainInfo{
				TrainNumber: strings.TrimSpace(c.PostForm("trainNumber")),
				CoachNumber: strings.ToUpper(strings.TrimSpace(c.PostForm("coachNumber"))),
				SeatNumber:  strings.TrimSpace(c.PostForm("seatNumber")),
			},
			ContactChannel: c.PostForm("contactChannel"),
			ContactEmail:   c.PostForm("contactEmail"),
		}
		var err error
		if req.Latitude, err = formFloat(c, "latitude"); err != nil {
			h.writeError(c, err)
			return
		}
		if req.Longitude, err = formFloat(c, "longitude"); err != nil {
			h.writeError(c, err)
			return
		}
		files, err := h.readUploads(c)
		if err != nil {
			h.writeError(c, err)
			return
		}
		req.Files = files
	}

	complaint, err := h.Complaints.Submit(c.Request.Context(), principal(c), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, CreateComplaintResponse{
		ComplaintID: complaint.ComplaintID,
		Message:     "Complaint submitted successfully",
		Complaint:   complaint,
	})
}

func formFloat(c *gin.Context, key string) (*float64, error) {
	raw := strings.TrimSpace(c.PostForm(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperrors.Clone(apperrors.ErrValidation, key+" must be a number")
	}
	return &v, nil
}

func (h *Handler) readUploads(c *gin.Context) ([]service.Upload, error) {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		// url-encoded submissions carry no files
		return nil, nil
	}
	var headers []*multipart.FileHeader
	headers = append(headers, form.File["files"]...)
	headers = append(headers, form.File["files[]"]...)

	var total int64
	uploads := make([]service.Upload, 0, len(headers))
	for _, fh := range headers {
		total += fh.Size
		if h.MaxUploadBytes > 0 && total > h.MaxUploadBytes {
			return nil, apperrors.Clone(apperrors.ErrValidation, fmt.Sprintf("attachments exceed %d MB", h.MaxUploadBytes>>20))
		}
		data, err := readFile(fh)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrValidation, "could not read "+fh.Filename)
		}
		uploads = append(uploads, service.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return uploads, nil
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// @Summary List complaints
// @Description Admins see every complaint; other callers only their own.
// @Tags complaints
// @Produce json
// @Param status query string false "Status"
// @Param categoryId query string false "Category ID"
// @Param priority query string false "Priority"
// @Param search query string false "Substring of complaint ID or description"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} ComplaintListResponse
// @Security BearerAuth
// @Router /api/complaints [get]
func (h *Handler) ListComplaints(c *gin.Context) {
	items, total, f, err := h.Complaints.List(c.Request.Context(), principal(c), complaintFilter(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ComplaintListResponse{Complaints: items, Pagination: pagination(total, f.Page, f.Limit)})
}

func complaintFilter(c *gin.Context) models.ComplaintFilter {
	return models.ComplaintFilter{
		Status:     models.Status(strings.ToUpper(filterValue(c, "status"))),
		CategoryID: filterValue(c, "categoryId"),
		Priority:   models.Priority(strings.ToUpper(filterValue(c, "priority"))),
		Search:     c.Query("search"),
		Page:       queryInt(c, "page"),
		Limit:      queryInt(c, "limit"),
	}
}

// filterValue reads a list filter; dashboards send "all" to mean no filter.
func filterValue(c *gin.Context, key string) string {
	v := strings.TrimSpace(c.Query(key))
	if strings.EqualFold(v, "all") {
		return ""
	}
	return v
}

// @Summary Complaint details
// @Tags complaints
// @Produce json
// @Param id path string true "Complaint ID (RM000001)"
// @Success 200 {object} models.Complaint
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/complaints/{id} [get]
func (h *Handler) GetComplaint(c *gin.Context) {
	complaint, err := h.Complaints.Get(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, complaint)
}

// @Summary Update a complaint
// @Description Status changes follow the complaint state machine. Feedback is accepted from the submitter after resolution.
// @Tags complaints
// @Accept json
// @Produce json
// @Param id path string true "Complaint ID"
// @Param body body service.UpdateRequest true "Patch"
// @Success 200 {object} models.Complaint
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/complaints/{id} [patch]
func (h *Handler) UpdateComplaint(c *gin.Context) {
	var req service.UpdateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if req.Status != nil {
		s := models.Status(strings.ToUpper(strings.TrimSpace(string(*req.Status))))
		req.Status = &s
	}
	complaint, err := h.Complaints.Update(c.Request.Context(), principal(c), c.Param("id"), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, complaint)
}

// @Summary Assign a complaint to a worker
// @Description Leave workerId empty to pick the least loaded available worker, preferring staff on the complaint's train.
// @Tags complaints
// @Accept json
// @Produce json
// @Param id path string true "Complaint ID"
// @Param body body service.AssignRequest false "Assignment"
// @Success 200 {object} models.Complaint
// @Security BearerAuth
// @Router /api/complaints/{id}/assign [post]
func (h *Handler) AssignComplaint(c *gin.Context) {
	var req service.AssignRequest
	if c.Request.ContentLength > 0 {
		if !h.bindJSON(c, &req) {
			return
		}
	}
	complaint, err := h.Complaints.Assign(c.Request.Context(), principal(c), c.Param("id"), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, complaint)
}

// @Summary Worker suggestions
// @Tags complaints
// @Produce json
// @Param id path string true "Complaint ID"
// @Success 200 {object} service.WorkerSuggestion
// @Security BearerAuth
// @Router /api/complaints/{id}/worker-suggestions [get]
func (h *Handler) WorkerSuggestions(c *gin.Context) {
	sug, err := h.Complaints.SuggestWorkers(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sug)
}

// @Summary Download an attachment
// @Tags media
// @Produce octet-stream
// @Param id path string true "Media ID"
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/media/{id} [get]
func (h *Handler) GetMedia(c *gin.Context) {
	data, m, err := h.Complaints.OpenMedia(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", m.Filename))
	c.Header("Content-Length", strconv.Itoa(len(data)))
	c.Data(http.StatusOK, m.ContentType, data)
}
