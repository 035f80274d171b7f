package usecase

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"app/internal/domain/model"
	"app/internal/event"
	repo "app/internal/repository"

	"github.com/rs/zerolog"
)

var adminOrderLogger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "admin_order").Logger()

type AdminOrderUsecase struct {
	tx        repo.TransactionManager
	auditLogs repo.AuditLogRepository
	events    event.Publisher
}

func NewAdminOrderUsecase(
	tx repo.TransactionManager,
	auditLogs repo.AuditLogRepository,
	events event.Publisher,
) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx, auditLogs: auditLogs, events: events}
}

type AdminOrderListInput struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	From   *time.Time
	To     *time.Time
}

type AdminOrderListOutput struct {
	Orders []OrderOutput `json:"orders"`
	Total  int64         `json:"total"`
	Page   int           `json:"page"`
	Limit  int           `json:"limit"`
}

func (u *AdminOrderUsecase) List(ctx context.Context, in AdminOrderListInput) (AdminOrderListOutput, error) {
	if in.Page <= 0 {
		in.Page = 1
	}
	if in.Limit <= 0 || in.Limit > 100 {
		in.Limit = 20
	}
	if in.Status != "" && !model.IsValidOrderStatus(in.Status) {
		return AdminOrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}
	if in.From != nil && in.To != nil && in.From.After(*in.To) {
		return AdminOrderListOutput{}, NewHTTPError(http.StatusBadRequest, "from must be <= to")
	}

	var out AdminOrderListOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().ListAdmin(ctx, repo.AdminOrderListFilter{
			Page:   in.Page,
			Limit:  in.Limit,
			Status: in.Status,
			UserID: in.UserID,
			From:   in.From,
			To:     in.To,
		})
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		outs := make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			outs = append(outs, toOrderOutput(o, items))
		}

		out = AdminOrderListOutput{Orders: outs, Total: total, Page: in.Page, Limit: in.Limit}
		return nil
	})

	if err != nil {
		return AdminOrderListOutput{}, err
	}
	return out, nil
}

// UpdateStatus は注文ステータスを遷移させる。
// 許される遷移はPROCESSING→SHIPPED|CANCELLED、SHIPPED→DELIVERED|CANCELLED。
// DELIVERED遷移でdelivered_atを記録し、CANCELLED遷移で在庫を戻す。
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorUserID int64, orderID int64, newStatus string) (OrderOutput, error) {
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if !model.IsValidOrderStatus(newStatus) {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}
	to := model.OrderStatus(newStatus)

	var (
		out        OrderOutput
		fromStatus model.OrderStatus
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		fromStatus = o.Status

		if !model.CanTransitionOrderStatus(o.Status, to) {
			return NewHTTPError(http.StatusBadRequest, "invalid transition")
		}

		var deliveredAt *time.Time
		if to == model.OrderStatusDelivered {
			now := time.Now()
			deliveredAt = &now
		}

		if err := r.Orders().UpdateStatus(ctx, orderID, to, deliveredAt); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//キャンセル時は引き当てた在庫を戻す
		if to == model.OrderStatusCancelled {
			for _, it := range items {
				if err := r.Inventory().IncreaseStock(ctx, it.ProductID, it.Quantity); err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
			}
		}

		o.Status = to
		o.DeliveredAt = deliveredAt
		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}

	u.writeAudit(ctx, actorUserID, orderID, fromStatus, to)

	if u.events != nil {
		ev := event.OrderEvent{
			Type:       event.TypeOrderStatusChanged,
			OrderID:    out.ID,
			UserID:     out.UserID,
			TotalPrice: out.TotalPrice,
			Status:     out.Status,
			OccurredAt: time.Now(),
		}
		if err := u.events.PublishOrderEvent(ctx, ev); err != nil {
			adminOrderLogger.Warn().Err(err).Int64("order_id", out.ID).Msg("publish status event failed")
		}
	}

	return out, nil
}

func (u *AdminOrderUsecase) writeAudit(ctx context.Context, actorUserID, orderID int64, from, to model.OrderStatus) {
	if u.auditLogs == nil {
		return
	}

	before, _ := json.Marshal(map[string]string{"status": string(from)})
	after, _ := json.Marshal(map[string]string{"status": string(to)})

	err := u.auditLogs.Create(ctx, model.AuditLog{
		ActorUserID:  actorUserID,
		Action:       model.AuditActionUpdateOrderStatus,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   orderID,
		BeforeJSON:   string(before),
		AfterJSON:    string(after),
		CreatedAt:    time.Now(),
	})
	if err != nil {
		adminOrderLogger.Error().Err(err).Int64("order_id", orderID).Msg("audit log write failed")
	}
}
