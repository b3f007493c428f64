package handler

import (
	"context"

	"urbansetu/dto"
	"urbansetu/middleware"
	"urbansetu/model"
	"urbansetu/usecase"
	"urbansetu/utils"

	"github.com/gin-gonic/gin"
)

type ContractHandler struct {
	contracts *usecase.ContractService
	coins     *usecase.CoinService
}

func NewContractHandler(contracts *usecase.ContractService, coins *usecase.CoinService) *ContractHandler {
	return &ContractHandler{contracts: contracts, coins: coins}
}

func (h *ContractHandler) Request(c *gin.Context) {
	var req dto.ContractRequest
	if !bindJSON(c, &req) {
		return
	}
	contract, err := h.contracts.Request(c.Request.Context(), middleware.ActorFrom(c), req.ToInput())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Created(c, contract)
}

func (h *ContractHandler) Get(c *gin.Context) {
	contract, err := h.contracts.Get(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, contract)
}

// List returns contracts where the caller is tenant or landlord.
func (h *ContractHandler) List(c *gin.Context) {
	status := model.ContractStatus(c.Query("status"))
	contracts, err := h.contracts.List(c.Request.Context(), middleware.ActorFrom(c), status)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"contracts": contracts})
}

func (h *ContractHandler) Accept(c *gin.Context) {
	h.transition(c, h.contracts.Accept)
}

func (h *ContractHandler) Reject(c *gin.Context) {
	h.transition(c, h.contracts.Reject)
}

func (h *ContractHandler) Terminate(c *gin.Context) {
	h.transition(c, h.contracts.Terminate)
}

type contractTransition func(ctx context.Context, actor usecase.Actor, id string) (*model.RentalContract, error)

func (h *ContractHandler) transition(c *gin.Context, fn contractTransition) {
	contract, err := fn(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, contract)
}

func (h *ContractHandler) Balance(c *gin.Context) {
	account, err := h.coins.Balance(c.Request.Context(), middleware.ActorFrom(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, account)
}

func (h *ContractHandler) History(c *gin.Context) {
	page, limit := pageParams(c)
	txs, err := h.coins.History(c.Request.Context(), middleware.ActorFrom(c).UserID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, txs)
}
