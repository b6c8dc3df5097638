package handler

import (
	"github.com/gin-gonic/gin"

	"mastersrl/carnivalhub/internal/service"
	"mastersrl/carnivalhub/pkg/response"
)

type ClubHandler struct {
	delegates *service.DelegateService
	ownership *service.OwnershipService
	directory *service.DirectoryService
}

func NewClubHandler(delegates *service.DelegateService, ownership *service.OwnershipService, directory *service.DirectoryService) *ClubHandler {
	return &ClubHandler{delegates: delegates, ownership: ownership, directory: directory}
}

func (h *ClubHandler) List(c *gin.Context) {
	state, ok := stateParam(c)
	if !ok {
		return
	}
	clubs, err := h.directory.ListClubs(c.Request.Context(), service.ClubQuery{State: state, Text: c.Query("q")})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, clubs)
}

// Get serves the public profile; OptionalAuth lets managers see unlisted clubs.
func (h *ClubHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	profile, err := h.directory.GetClubProfile(c.Request.Context(), actorID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, profile)
}

func (h *ClubHandler) Create(c *gin.Context) {
	var req service.ClubInput
	if !bindJSON(c, &req) {
		return
	}
	club, err := h.delegates.CreateClub(c.Request.Context(), actorID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, club)
}

// CreateOnBehalf creates a proxy club. The token travels by email only.
func (h *ClubHandler) CreateOnBehalf(c *gin.Context) {
	var req service.ProxyClubInput
	if !bindJSON(c, &req) {
		return
	}
	inv, err := h.delegates.CreateClubOnBehalf(c.Request.Context(), actorID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, gin.H{
		"club":               inv.Club,
		"invite_email":       inv.Token.InviteEmail,
		"invitation_expires": inv.Token.ExpiresAt,
	})
}

func (h *ClubHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.ClubInput
	if !bindJSON(c, &req) {
		return
	}
	club, err := h.delegates.UpdateClub(c.Request.Context(), actorID(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, club)
}

type alternateNameRequest struct {
	AlternateName string `json:"alternate_name" binding:"required"`
}

func (h *ClubHandler) AddAlternateName(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req alternateNameRequest
	if !bindJSON(c, &req) {
		return
	}
	alt, err := h.delegates.AddAlternateName(c.Request.Context(), actorID(c), id, req.AlternateName)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, alt)
}

func (h *ClubHandler) RemoveAlternateName(c *gin.Context) {
	altID, ok := pathID(c, "altID")
	if !ok {
		return
	}
	if err := h.delegates.RemoveAlternateName(c.Request.Context(), actorID(c), altID); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, nil)
}

func (h *ClubHandler) Join(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, err := h.delegates.JoinClub(c.Request.Context(), actorID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, user)
}

func (h *ClubHandler) Leave(c *gin.Context) {
	var req service.LeaveInput
	if !bindJSON(c, &req) {
		return
	}
	if err := h.delegates.LeaveClub(c.Request.Context(), actorID(c), req); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, nil)
}

type inviteRequest struct {
	Email string `json:"email" binding:"required"`
}

func (h *ClubHandler) InviteDelegate(c *gin.Context) {
	var req inviteRequest
	if !bindJSON(c, &req) {
		return
	}
	token, err := h.delegates.InviteDelegate(c.Request.Context(), actorID(c), req.Email)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, gin.H{"invite_email": token.InviteEmail, "expires_at": token.ExpiresAt})
}

// AcceptInvitation is public: the token is the credential.
func (h *ClubHandler) AcceptInvitation(c *gin.Context) {
	var req service.AcceptInvitationInput
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.delegates.AcceptDelegateInvitation(c.Request.Context(), c.Param("token"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, user)
}

type claimRequest struct {
	Token string `json:"token" binding:"required"`
}

func (h *ClubHandler) ClaimProxy(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req claimRequest
	if !bindJSON(c, &req) {
		return
	}
	club, err := h.ownership.ClaimProxyClub(c.Request.Context(), actorID(c), id, req.Token)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, club)
}
