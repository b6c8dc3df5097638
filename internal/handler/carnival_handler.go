package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"mastersrl/carnivalhub/internal/model"
	"mastersrl/carnivalhub/internal/service"
	"mastersrl/carnivalhub/pkg/response"
)

type CarnivalHandler struct {
	carnivals  *service.CarnivalService
	ownership  *service.OwnershipService
	attendance *service.AttendanceService
	directory  *service.DirectoryService
}

func NewCarnivalHandler(
	carnivals *service.CarnivalService,
	ownership *service.OwnershipService,
	attendance *service.AttendanceService,
	directory *service.DirectoryService,
) *CarnivalHandler {
	return &CarnivalHandler{carnivals: carnivals, ownership: ownership, attendance: attendance, directory: directory}
}

func stateParam(c *gin.Context) (*model.State, bool) {
	raw := c.Query("state")
	if raw == "" {
		return nil, true
	}
	s, ok := model.ParseState(raw)
	if !ok {
		response.BadRequest(c, "unknown state "+strconv.Quote(raw))
		return nil, false
	}
	return &s, true
}

func (h *CarnivalHandler) List(c *gin.Context) {
	state, ok := stateParam(c)
	if !ok {
		return
	}
	upcoming, _ := strconv.ParseBool(c.DefaultQuery("upcoming", "true"))
	external, _ := strconv.ParseBool(c.Query("external"))

	carnivals, err := h.directory.ListCarnivals(c.Request.Context(), service.CarnivalQuery{
		State:        state,
		Upcoming:     upcoming,
		ExternalOnly: external,
		Text:         c.Query("q"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, carnivals)
}

func (h *CarnivalHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	carnival, err := h.directory.GetCarnival(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, carnival)
}

func (h *CarnivalHandler) Create(c *gin.Context) {
	var req service.CarnivalInput
	if !bindJSON(c, &req) {
		return
	}
	carnival, err := h.carnivals.Create(c.Request.Context(), actorID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, carnival)
}

func (h *CarnivalHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.CarnivalInput
	if !bindJSON(c, &req) {
		return
	}
	carnival, err := h.carnivals.Update(c.Request.Context(), actorID(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, carnival)
}

func (h *CarnivalHandler) Claim(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	carnival, err := h.ownership.ClaimCarnival(c.Request.Context(), actorID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, carnival)
}

func (h *CarnivalHandler) Archive(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.ownership.ArchiveCarnival(c.Request.Context(), actorID(c), id); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, nil)
}

func (h *CarnivalHandler) ListAttendances(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	entries, err := h.directory.ListAttendances(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, entries)
}

// RegisterSelf registers the caller's own club.
func (h *CarnivalHandler) RegisterSelf(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.RegistrationInput
	if !bindJSON(c, &req) {
		return
	}
	reg, err := h.attendance.RegisterSelfService(c.Request.Context(), actorID(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, reg)
}

func (h *CarnivalHandler) UnregisterSelf(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.attendance.UnregisterSelfService(c.Request.Context(), actorID(c), id); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, nil)
}

type organiserRegistrationRequest struct {
	ClubID uint `json:"club_id" binding:"required"`
	service.RegistrationInput
}

// RegisterClub is the organiser registering any club.
func (h *CarnivalHandler) RegisterClub(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req organiserRegistrationRequest
	if !bindJSON(c, &req) {
		return
	}
	reg, err := h.attendance.RegisterOrganiserSide(c.Request.Context(), actorID(c), id, req.ClubID, req.RegistrationInput)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, reg)
}

func (h *CarnivalHandler) UpdateRegistration(c *gin.Context) {
	regID, ok := pathID(c, "regID")
	if !ok {
		return
	}
	var req service.RegistrationInput
	if !bindJSON(c, &req) {
		return
	}
	reg, err := h.attendance.UpdateRegistration(c.Request.Context(), actorID(c), regID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, reg)
}

func (h *CarnivalHandler) RemoveRegistration(c *gin.Context) {
	regID, ok := pathID(c, "regID")
	if !ok {
		return
	}
	if err := h.attendance.RemoveOrganiserSide(c.Request.Context(), actorID(c), regID); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, nil)
}

type reorderRequest struct {
	RegistrationIDs []uint `json:"registration_ids" binding:"required"`
}

func (h *CarnivalHandler) Reorder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req reorderRequest
	if !bindJSON(c, &req) {
		return
	}
	regs, err := h.attendance.Reorder(c.Request.Context(), actorID(c), id, req.RegistrationIDs)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, regs)
}
