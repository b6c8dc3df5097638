package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"mastersrl/carnivalhub/internal/service"
	"mastersrl/carnivalhub/pkg/response"
)

// IngestTrigger enqueues a background ingest run.
type IngestTrigger interface {
	TriggerIngest(ctx context.Context) error
}

type AdminHandler struct {
	ingest    *service.IngestService
	trigger   IngestTrigger
	delegates *service.DelegateService
	directory *service.DirectoryService
}

// NewAdminHandler accepts a nil trigger; ingest then runs inside the request.
func NewAdminHandler(ingest *service.IngestService, trigger IngestTrigger, delegates *service.DelegateService, directory *service.DirectoryService) *AdminHandler {
	return &AdminHandler{ingest: ingest, trigger: trigger, delegates: delegates, directory: directory}
}

func (h *AdminHandler) TriggerIngest(c *gin.Context) {
	if h.trigger != nil {
		if err := h.trigger.TriggerIngest(c.Request.Context()); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, response.APIResponse{Code: 0, Message: "ingest queued"})
		return
	}

	report, err := h.ingest.Run(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, report)
}

func (h *AdminHandler) IngestStatus(c *gin.Context) {
	last, ok, err := h.ingest.LastRun(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if !ok {
		response.Success(c, gin.H{"last_run": nil})
		return
	}
	response.Success(c, gin.H{"last_run": last})
}

func (h *AdminHandler) PurgeTokens(c *gin.Context) {
	n, err := h.delegates.PurgeSpentTokens(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": n})
}

func (h *AdminHandler) GetUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, err := h.directory.GetUser(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, user)
}
