package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/dragon-companion/internal/dragon"
	apperrors "github.com/wfunc/dragon-companion/internal/errors"
	"github.com/wfunc/dragon-companion/internal/middleware"
	"github.com/wfunc/dragon-companion/internal/models"
	"github.com/wfunc/dragon-companion/internal/service"
	"go.uber.org/zap"
)

// DragonHandler 龙宠处理器
type DragonHandler struct {
	service service.DragonService
	logger  *zap.Logger
}

// NewDragonHandler 创建龙宠处理器
func NewDragonHandler(svc service.DragonService, logger *zap.Logger) *DragonHandler {
	return &DragonHandler{
		service: svc,
		logger:  logger,
	}
}

// Response 成功响应
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

// PageResponse 分页响应
type PageResponse struct {
	Items    interface{} `json:"items"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

// FeedRequest 喂食请求
type FeedRequest struct {
	ItemID string `json:"item_id" binding:"required,max=64"`
}

// PlayRequest 玩耍请求，不带玩具时只有基础效果
type PlayRequest struct {
	ToyID string `json:"toy_id" binding:"max=64"`
}

// RenameRequest 改名请求
type RenameRequest struct {
	Name string `json:"name" binding:"required,max=50"`
}

// AppearanceRequest 外观请求
type AppearanceRequest struct {
	Color       string   `json:"color" binding:"max=30"`
	Accessories []string `json:"accessories" binding:"dive,max=64"`
}

// AwardRequest 活动奖励请求
type AwardRequest struct {
	ActivityType string `json:"activity_type" binding:"required,max=64"`
	ActivityID   string `json:"activity_id" binding:"required,max=128"`
}

// GiftRequest 赠送请求
type GiftRequest struct {
	ToUserID string `json:"to_user_id" binding:"required,max=64"`
	ItemID   string `json:"item_id" binding:"required,max=64"`
	Message  string `json:"message" binding:"max=500"`
}

// CatalogResponse 物品目录
type CatalogResponse struct {
	Version string                  `json:"version"`
	Items   []dragon.ItemDefinition `json:"items"`
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

// bind 解析请求体，失败时返回参数错误
func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.Abort(c, apperrors.Wrap(err, apperrors.ErrInvalidParam))
		return false
	}
	return true
}

func currentUser(c *gin.Context) (string, bool) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		middleware.Abort(c, apperrors.New(apperrors.ErrAuthentication, "未登录"))
		return "", false
	}
	return userID, true
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return page, pageSize
}

// GetDragon 查看龙宠（结算衰减与进化）
// @Summary 查看龙宠
// @Description 结算衰减与进化后返回龙宠快照，首次访问时创建
// @Tags Dragon
// @Security Bearer
// @Produce json
// @Success 200 {object} service.Snapshot
// @Failure 401 {object} apperrors.ErrorResponse
// @Failure 500 {object} apperrors.ErrorResponse
// @Router /api/v1/dragon [get]
func (h *DragonHandler) GetDragon(c *gin.Context) {
	userID, exists := currentUser(c)
	if !exists {
		return
	}

	snap, err := h.service.Observe(c.Request.Context(), userID)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	ok(c, snap)
}

// Feed 喂食
// @Summary 喂食
// @Description 消耗背包中的一个食物，应用效果并记一次 dragon_fed 活动
// @Tags Dragon
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body FeedRequest true "请求参数"
// @Success 200 {object} service.ActionResult
// @Failure 400 {object} apperrors.ErrorResponse
// @Failure 401 {object} apperrors.ErrorResponse
// @Failure 404 {object} apperrors.ErrorResponse
// @Failure 500 {object} apperrors.ErrorResponse
// @Router /api/v1/dragon/feed [post]
func (h *DragonHandler) Feed(c *gin.Context) {
	userID, exists := currentUser(c)
	if !exists {
		return
	}

	var req FeedRequest
	if !bind(c, &req) {
		return
	}

	result, err := h.service.Feed(c.Request.Context(), userID, req.ItemID)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	ok(c, result)
}

// Play 玩耍
// @Summary 玩耍
// @Description 玩具可选，带玩具时消耗一个玩具
// @Tags Dragon
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body PlayRequest false "请求参数"
// @Success 200 {object} service.ActionResult
// @Failure 400 {object} apperrors.ErrorResponse
// @Failure 401 {object} apperrors.ErrorResponse
// @Failure 404 {object} apperrors.ErrorResponse
// @Failure 500 {object} apperrors.ErrorResponse
// @Router /api/v1/dragon/play [post]
func (h *DragonHandler) Play(c *gin.Context) {
	userID, exists := currentUser(c)
	if !exists {
		return
	}

	// 请求体可以为空
	var req PlayRequest
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return
	}

	result, err := h.service.Play(c.Request.Context(), userID, req.ToyID)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	ok(c, result)
}

// ConsumeItem 使用物品
// @Summary 使用物品
// @Description 消耗一个物品并应用其效果
// @Tags Dragon
// @Security Bearer
// @Produce json
// @Param item_id path string true "物品ID"
// @Success 200 {object} service.ActionResult
// @Failure 400 {object} apperrors.ErrorResponse
// @Failure 401 {object} apperrors.ErrorResponse
// @Failure 404 {object} apperrors.ErrorResponse
// @Failure 500 {object} apperrors.ErrorResponse
// @Router /api/v1/dragon/items/{item_id}/consume [post]
func (h *DragonHandler) ConsumeItem(c *gin.Context) {
	userID, exists := currentUser(c)
	if !exists {
		return
	}

	result, err := h.service.ConsumeItem(c.Request.Context(), userID, c.Param("item_id"))
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	ok(c, result)
}

// Rename 改名
// @Summary 改名
// @Description 修改龙宠名字
// @Tags Dragon
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body RenameRequest true "请求参数"
// @Success 200 {object} service.Snapshot
// @Failure 400 {object} apperrors.ErrorResponse
// @Failure 401 {object} apperrors.ErrorResponse
// @Failure 500 {object} apperrors.ErrorResponse
// @Router /api/v1/dragon/name [put]
func (h *DragonHandler) Rename(c *gin.Context) {
	userID, exists := currentUser(c)
	if !exists {
		return
	}

	var req RenameRequest
	if !bind(c, &req) {
		return
	}

	snap, err := h.service.Rename(c.Request.Context(), userID, req.Name)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	ok(c, snap)
}

// Customize 修改外观
// @Summary 修改外观
// @Description 修改颜色和佩戴的饰品
// @Tags Dragon
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body AppearanceRequest true "请求参数"
// @Success 200 {object} service.Snapshot
// @Failure 400 {object} apperrors.ErrorResponse
// @Failure 401 {object} apperrors.ErrorResponse
// @Failure 404 {object} apperrors.ErrorResponse
// @Failure 500 {object} apperrors.ErrorResponse
// @Router /api/v1/dragon/appearance [put]
func (h *DragonHandler) Customize(c *gin.Context) {
	userID, exists := currentUser(c)
	if !exists {
		return
	}

	var req AppearanceRequest
	if !bind(c, &req) {
		return
	}

	snap, err := h.service.Customize(c.Request.Context(), userID, req.Color, req.Accessories)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	ok(c, snap)
}

// AwardActivity 结算活动奖励，重复提交返回零奖励
// @Summary 结算活动奖励
// @Description 同一活动重复提交返回零奖励
// @Tags Activity
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body AwardRequest true "请求参数"
// @Success 200 {object} service.Reward
// @Failure 400 {object} apperrors.ErrorResponse
// @Failure 401 {object} apperrors.ErrorResponse
// @Failure 500 {object} apperrors.ErrorResponse
// @Failure 503 {object} apperrors.ErrorResponse
// @Router /api/v1/activities [post]
func (h *DragonHandler) AwardActivity(c *gin.Context) {
	userID, exists := currentUser(c)
	if !exists {
		return
	}

	var req AwardRequest
	if !bind(c, &req) {
		return
	}

	reward, err := h.service.AwardActivity(c.Request.Context(), userID, req.ActivityType, req.ActivityID)
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	if !reward.Duplicate {
		h.logger.Debug("活动奖励已结算",
			zap.String("user_id", userID),
			zap.String("activity_type", req.ActivityType),
			zap.String("activity_id", req.ActivityID))
	}
	ok(c, reward)
}

// ListActivities 活动奖励记录
// @Summary 活动奖励记录
// @Description 分页查询活动结算历史
// @Tags Activity
// @Security Bearer
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} PageResponse
// @Failure 401 {object} apperrors.ErrorResponse
// @Failure 500 {object} apperrors.ErrorResponse
// @Router /api/v1/activities [get]
func (h *DragonHandler) ListActivities(c *gin.Context) {
	userID, exists := currentUser(c)
	if !exists {
		return
	}

	page, pageSize := pageParams(c)
	logs, total, err := h.service.ListActivities(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	if logs == nil {
		logs = []*models.ActivityLog{}
	}
	ok(c, PageResponse{Items: logs, Total: total, Page: page, PageSize: pageSize})
}

// GetInventory 查看背包
// @Summary 查看背包
// @Description 背包物品及目录信息
// @Tags Inventory
// @Security Bearer
// @Produce json
// @Success 200 {array} service.InventoryEntry
// @Failure 401 {object} apperrors.ErrorResponse
// @Failure 500 {object} apperrors.ErrorResponse
// @Router /api/v1/inventory [get]
func (h *DragonHandler) GetInventory(c *gin.Context) {
	userID, exists := currentUser(c)
	if !exists {
		return
	}

	entries, err := h.service.GetInventory(c.Request.Context(), userID)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	if entries == nil {
		entries = []service.InventoryEntry{}
	}
	ok(c, entries)
}

// SendGift 赠送物品
// @Summary 赠送物品
// @Description 从自己背包转移一个物品给对方
// @Tags Gift
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body GiftRequest true "请求参数"
// @Success 200 {object} service.GiftResult
// @Failure 400 {object} apperrors.ErrorResponse
// @Failure 401 {object} apperrors.ErrorResponse
// @Failure 404 {object} apperrors.ErrorResponse
// @Failure 500 {object} apperrors.ErrorResponse
// @Failure 503 {object} apperrors.ErrorResponse
// @Router /api/v1/gifts [post]
func (h *DragonHandler) SendGift(c *gin.Context) {
	userID, exists := currentUser(c)
	if !exists {
		return
	}

	var req GiftRequest
	if !bind(c, &req) {
		return
	}

	result, err := h.service.SendGift(c.Request.Context(), userID, req.ToUserID, req.ItemID, req.Message)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	ok(c, result)
}

// ListGifts 礼物记录（收到与送出）
// @Summary 礼物记录
// @Description 分页查询收到与送出的礼物
// @Tags Gift
// @Security Bearer
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} PageResponse
// @Failure 401 {object} apperrors.ErrorResponse
// @Failure 500 {object} apperrors.ErrorResponse
// @Router /api/v1/gifts [get]
func (h *DragonHandler) ListGifts(c *gin.Context) {
	userID, exists := currentUser(c)
	if !exists {
		return
	}

	page, pageSize := pageParams(c)
	gifts, total, err := h.service.ListGifts(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	if gifts == nil {
		gifts = []*models.GiftTransfer{}
	}
	ok(c, PageResponse{Items: gifts, Total: total, Page: page, PageSize: pageSize})
}

// GetCatalog 物品目录
// @Summary 物品目录
// @Description 全部物品定义
// @Tags Catalog
// @Security Bearer
// @Produce json
// @Success 200 {object} CatalogResponse
// @Failure 401 {object} apperrors.ErrorResponse
// @Router /api/v1/catalog [get]
func (h *DragonHandler) GetCatalog(c *gin.Context) {
	catalog := h.service.Catalog()
	ok(c, CatalogResponse{
		Version: catalog.Version(),
		Items:   catalog.Items(),
	})
}
