package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sadhef/notify/internal/domain"
	"github.com/sadhef/notify/internal/observability"
	"github.com/sadhef/notify/internal/service"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
	maxPageSize     = 100
)

type DispatchService interface {
	Dispatch(ctx context.Context, req service.DispatchRequest) (*domain.DispatchRecord, error)
}

type SubscriptionService interface {
	Register(ctx context.Context, accountID, endpoint, p256dh, auth, clientDescriptor string) (*domain.Subscription, error)
	Unsubscribe(ctx context.Context, accountID string) (int64, error)
	Status(ctx context.Context, accountID string) (*service.SubscriptionStatus, error)
	ListAccounts(ctx context.Context) ([]service.AccountSummary, error)
}

type HistoryService interface {
	Page(ctx context.Context, page int, pageSize int) (*service.HistoryPage, error)
}

type NotificationHandler struct {
	dispatch      DispatchService
	subscriptions SubscriptionService
	history       HistoryService
	vapidPublic   string
}

func NewNotificationHandler(
	dispatch DispatchService,
	subscriptions SubscriptionService,
	history HistoryService,
	vapidPublicKey string,
) (*NotificationHandler, error) {
	if dispatch == nil {
		return nil, fmt.Errorf("dispatch service is required")
	}
	if subscriptions == nil {
		return nil, fmt.Errorf("subscription service is required")
	}
	if history == nil {
		return nil, fmt.Errorf("history service is required")
	}
	return &NotificationHandler{
		dispatch:      dispatch,
		subscriptions: subscriptions,
		history:       history,
		vapidPublic:   vapidPublicKey,
	}, nil
}

func RegisterNotificationRoutes(
	router fiber.Router,
	dispatch DispatchService,
	subscriptions SubscriptionService,
	history HistoryService,
	roles RoleResolver,
	vapidPublicKey string,
) error {
	h, err := NewNotificationHandler(dispatch, subscriptions, history, vapidPublicKey)
	if err != nil {
		return err
	}

	group := router.Group("/notifications", RequireAccount())
	group.Get("/vapid-public-key", h.VAPIDPublicKey)
	group.Post("/subscribe", h.Subscribe)
	group.Delete("/unsubscribe", h.Unsubscribe)
	group.Get("/subscription-status", h.SubscriptionStatus)

	admin := RequireAdministrator(roles)
	group.Post("/send-to-all", admin, h.SendToAll)
	group.Post("/send-to-users", admin, h.SendToUsers)
	group.Get("/history", admin, h.History)
	group.Get("/users", admin, h.ListUsers)

	return nil
}

type subscribeRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256DH string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

type subscriptionResponse struct {
	ID               string    `json:"id"`
	AccountID        string    `json:"userId"`
	Endpoint         string    `json:"endpoint"`
	ClientDescriptor string    `json:"userAgent,omitempty"`
	Active           bool      `json:"isActive"`
	CreatedAt        time.Time `json:"createdAt"`
}

type sendRequest struct {
	Title   string   `json:"title"`
	Message string   `json:"message"`
	UserIDs []string `json:"userIds"`
}

type outcomeResponse struct {
	SubscriptionID string     `json:"subscriptionId"`
	AccountID      string     `json:"userId"`
	Status         string     `json:"status"`
	DeliveredAt    *time.Time `json:"deliveredAt,omitempty"`
	Error          *string    `json:"error,omitempty"`
}

type dispatchResponse struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	Message        string            `json:"message"`
	Icon           string            `json:"icon"`
	URL            string            `json:"url"`
	SentBy         string            `json:"sentBy"`
	TotalSent      int               `json:"totalSent"`
	TotalDelivered int               `json:"totalDelivered"`
	TotalFailed    int               `json:"totalFailed"`
	Outcomes       []outcomeResponse `json:"sentTo"`
	CreatedAt      time.Time         `json:"createdAt"`
}

type historyEntryResponse struct {
	dispatchResponse
	SenderName string `json:"senderName,omitempty"`
}

type historyResponse struct {
	Notifications []historyEntryResponse `json:"notifications"`
	Pagination    paginationMeta         `json:"pagination"`
}

type paginationMeta struct {
	CurrentPage  int   `json:"currentPage"`
	TotalPages   int   `json:"totalPages"`
	TotalRecords int64 `json:"totalRecords"`
	HasNext      bool  `json:"hasNext"`
	HasPrev      bool  `json:"hasPrev"`
}

type accountSummaryResponse struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	Role                  string `json:"role"`
	HasActiveSubscription bool   `json:"hasActiveSubscription"`
	SubscriptionCount     int64  `json:"subscriptionCount"`
}

func (h *NotificationHandler) VAPIDPublicKey(c *fiber.Ctx) error {
	return respondData(c, fiber.StatusOK, fiber.Map{
		"publicKey": h.vapidPublic,
	})
}

func (h *NotificationHandler) Subscribe(c *fiber.Ctx) error {
	var req subscribeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	subscription, err := h.subscriptions.Register(
		requestContext(c),
		AccountID(c),
		req.Endpoint,
		req.Keys.P256DH,
		req.Keys.Auth,
		c.Get(fiber.HeaderUserAgent),
	)
	if err != nil {
		return toHTTPError(err)
	}

	return respondData(c, fiber.StatusCreated, toSubscriptionResponse(subscription))
}

func (h *NotificationHandler) Unsubscribe(c *fiber.Ctx) error {
	affected, err := h.subscriptions.Unsubscribe(requestContext(c), AccountID(c))
	if err != nil {
		return toHTTPError(err)
	}

	return respondData(c, fiber.StatusOK, fiber.Map{
		"removed": affected,
	})
}

func (h *NotificationHandler) SubscriptionStatus(c *fiber.Ctx) error {
	status, err := h.subscriptions.Status(requestContext(c), AccountID(c))
	if err != nil {
		return toHTTPError(err)
	}

	return respondData(c, fiber.StatusOK, fiber.Map{
		"hasActiveSubscription": status.HasActiveSubscription,
		"subscriptionCount":     status.SubscriptionCount,
	})
}

func (h *NotificationHandler) SendToAll(c *fiber.Ctx) error {
	var req sendRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	record, err := h.dispatch.Dispatch(requestContext(c), service.DispatchRequest{
		SenderID: AccountID(c),
		Title:    req.Title,
		Body:     req.Message,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return respondData(c, fiber.StatusOK, toDispatchResponse(record))
}

func (h *NotificationHandler) SendToUsers(c *fiber.Ctx) error {
	var req sendRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.UserIDs == nil {
		return toHTTPError(fmt.Errorf("%w: userIds is required", domain.ErrValidation))
	}

	record, err := h.dispatch.Dispatch(requestContext(c), service.DispatchRequest{
		SenderID:         AccountID(c),
		Title:            req.Title,
		Body:             req.Message,
		TargetAccountIDs: req.UserIDs,
		Targeted:         true,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return respondData(c, fiber.StatusOK, toDispatchResponse(record))
}

func (h *NotificationHandler) History(c *fiber.Ctx) error {
	page := c.QueryInt("page", defaultPage)
	limit := c.QueryInt("limit", defaultPageSize)
	if page < 1 {
		return toHTTPError(fmt.Errorf("%w: page must be >= 1", domain.ErrValidation))
	}
	if limit < 1 || limit > maxPageSize {
		return toHTTPError(fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrValidation, maxPageSize))
	}

	result, err := h.history.Page(requestContext(c), page, limit)
	if err != nil {
		return toHTTPError(err)
	}

	entries := make([]historyEntryResponse, 0, len(result.Entries))
	for i := range result.Entries {
		entries = append(entries, historyEntryResponse{
			dispatchResponse: toDispatchResponse(&result.Entries[i].Record),
			SenderName:       result.Entries[i].SenderName,
		})
	}

	return respondData(c, fiber.StatusOK, historyResponse{
		Notifications: entries,
		Pagination: paginationMeta{
			CurrentPage:  result.CurrentPage,
			TotalPages:   result.TotalPages,
			TotalRecords: result.TotalRecords,
			HasNext:      result.HasNext,
			HasPrev:      result.HasPrev,
		},
	})
}

func (h *NotificationHandler) ListUsers(c *fiber.Ctx) error {
	summaries, err := h.subscriptions.ListAccounts(requestContext(c))
	if err != nil {
		return toHTTPError(err)
	}

	users := make([]accountSummaryResponse, 0, len(summaries))
	for _, summary := range summaries {
		users = append(users, accountSummaryResponse{
			ID:                    summary.Account.ID,
			Name:                  summary.Account.DisplayName,
			Role:                  string(summary.Account.Role),
			HasActiveSubscription: summary.HasActiveSubscription,
			SubscriptionCount:     summary.SubscriptionCount,
		})
	}

	return respondData(c, fiber.StatusOK, fiber.Map{
		"users": users,
	})
}

func requestContext(c *fiber.Ctx) context.Context {
	if id := strings.TrimSpace(c.Get(fiber.HeaderXRequestID)); id != "" {
		return observability.WithCorrelationID(c.Context(), id)
	}
	if id, ok := c.Locals("requestid").(string); ok && strings.TrimSpace(id) != "" {
		return observability.WithCorrelationID(c.Context(), strings.TrimSpace(id))
	}
	return c.Context()
}

func respondData(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

func toSubscriptionResponse(s *domain.Subscription) subscriptionResponse {
	if s == nil {
		return subscriptionResponse{}
	}

	return subscriptionResponse{
		ID:               s.ID,
		AccountID:        s.AccountID,
		Endpoint:         s.Endpoint,
		ClientDescriptor: s.ClientDescriptor,
		Active:           s.Active,
		CreatedAt:        s.CreatedAt,
	}
}

func toDispatchResponse(record *domain.DispatchRecord) dispatchResponse {
	if record == nil {
		return dispatchResponse{}
	}

	outcomes := make([]outcomeResponse, 0, len(record.Outcomes))
	for _, outcome := range record.Outcomes {
		outcomes = append(outcomes, outcomeResponse{
			SubscriptionID: outcome.SubscriptionID,
			AccountID:      outcome.AccountID,
			Status:         string(outcome.Status),
			DeliveredAt:    outcome.DeliveredAt,
			Error:          outcome.Error,
		})
	}

	return dispatchResponse{
		ID:             record.ID,
		Title:          record.Title,
		Message:        record.Body,
		Icon:           record.Icon,
		URL:            record.URL,
		SentBy:         record.SentBy,
		TotalSent:      record.TotalSent,
		TotalDelivered: record.TotalDelivered,
		TotalFailed:    record.TotalFailed,
		Outcomes:       outcomes,
		CreatedAt:      record.CreatedAt,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrPersistence):
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	default:
		return err
	}
}
