package handler

import (
	"github.com/gin-gonic/gin"

	"mastersrl/carnivalhub/internal/service"
	"mastersrl/carnivalhub/pkg/response"
)

type SubscriptionHandler struct {
	subs *service.SubscriptionService
}

func NewSubscriptionHandler(subs *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subs: subs}
}

func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	var req service.SubscribeInput
	if !bindJSON(c, &req) {
		return
	}
	sub, err := h.subs.Subscribe(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, sub)
}

func (h *SubscriptionHandler) Unsubscribe(c *gin.Context) {
	if err := h.subs.Unsubscribe(c.Request.Context(), c.Param("token")); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, nil)
}
