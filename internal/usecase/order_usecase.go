package usecase

import (
	"context"
	"net/http"
	"os"
	"time"

	"app/internal/domain/model"
	"app/internal/event"
	"app/internal/metrics"
	repo "app/internal/repository"

	"github.com/rs/zerolog"
)

var orderLogger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "order").Logger()

type OrderUsecase struct {
	tx        repo.TransactionManager
	addresses repo.AddressRepository
	events    event.Publisher
	metrics   *metrics.AppMetrics
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	addresses repo.AddressRepository,
	events event.Publisher,
	m *metrics.AppMetrics,
) *OrderUsecase {
	return &OrderUsecase{tx: tx, addresses: addresses, events: events, metrics: m}
}

type PlaceOrderInput struct {
	AddressID int64
}

type OrderItemOutput struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
}

type OrderOutput struct {
	ID            int64                 `json:"id"`
	UserID        int64                 `json:"user_id"`
	Status        string                `json:"status"`
	PaymentStatus string                `json:"payment_status"`
	TotalPrice    int64                 `json:"total_price"`
	Shipping      model.ShippingAddress `json:"shipping"`
	DeliveredAt   *time.Time            `json:"delivered_at,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	Items         []OrderItemOutput     `json:"items"`
}

// PlaceOrder はカートを注文へ変換する。
// 明細ごとに商品名と現在価格をコピーして保存する（後日の価格変更は注文に影響しない）。
// 注文合計はカートの計算済み合計をそのまま使う。変換後、カートは空になる。
// 全体を1つのトランザクションで行う（注文作成とカートリセットは不可分）。
func (u *OrderUsecase) PlaceOrder(ctx context.Context, userID int64, in PlaceOrderInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.AddressID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid address_id")
	}

	//address_idの存在確認＋所有チェック
	addr, err := u.addresses.FindByID(ctx, in.AddressID)
	if err == repo.ErrNotFound {
		return OrderOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	//他人の住所なら403
	if addr.UserID != userID {
		return OrderOutput{}, NewHTTPError(http.StatusForbidden, "forbidden")
	}

	var out OrderOutput

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//ACTIVEカート取得
		cart, err := r.Carts().FindActiveByUserID(ctx, userID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusBadRequest, "cart empty")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		cartItems, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if len(cartItems) == 0 {
			return NewHTTPError(http.StatusBadRequest, "cart empty")
		}

		//明細ごとに現在価格をスナップショットし、在庫を確定時に減らす
		orderItems := make([]model.OrderItem, 0, len(cartItems))

		for _, ci := range cartItems {
			p, err := r.Products().FindByID(ctx, ci.ProductID)
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusBadRequest, "invalid")
			}
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !p.IsActive {
				return NewHTTPError(http.StatusBadRequest, "invalid")
			}

			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, ci.ProductID, ci.Quantity)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !ok {
				return NewHTTPError(http.StatusBadRequest, "out of stock")
			}

			orderItems = append(orderItems, model.OrderItem{
				ProductID:           ci.ProductID,
				ProductNameSnapshot: p.Name,
				UnitPriceSnapshot:   p.Price,
				Quantity:            ci.Quantity,
				CreatedAt:           time.Now(),
			})
		}

		//合計はカートの計算済み合計（独自に再計算しない）
		now := time.Now()
		order := model.Order{
			UserID:        userID,
			Status:        model.OrderStatusProcessing,
			PaymentStatus: model.OrderPaymentUnpaid,
			TotalPrice:    cart.TotalPrice,
			Shipping:      addr.ToShippingSnapshot(),
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		orderID, err := r.Orders().Create(ctx, order)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//カートをCHECKED_OUTにして明細をクリア（再注文防止）
		if err := r.Carts().UpdateStatus(ctx, cart.ID, model.CartStatusCheckedOut); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if err := r.Carts().Clear(ctx, cart.ID); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		order.ID = orderID
		out = toOrderOutput(order, orderItems)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}

	u.metrics.RecordOrderPlaced(ctx, out.TotalPrice)
	u.publishEvent(ctx, event.OrderEvent{
		Type:       event.TypeOrderPlaced,
		OrderID:    out.ID,
		UserID:     out.UserID,
		TotalPrice: out.TotalPrice,
		Status:     out.Status,
		OccurredAt: time.Now(),
	})

	return out, nil
}

type MyOrderListOutput struct {
	Orders []OrderOutput `json:"orders"`
	Total  int64         `json:"total"`
	Page   int           `json:"page"`
	Limit  int           `json:"limit"`
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64, page int, limit int) (MyOrderListOutput, error) {
	if userID <= 0 {
		return MyOrderListOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var out MyOrderListOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().ListByUserID(ctx, userID, page, limit)
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

		out = MyOrderListOutput{Orders: outs, Total: total, Page: page, Limit: limit}
		return nil
	})

	if err != nil {
		return MyOrderListOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if o.UserID != userID {
			//他人の注文は「存在しない扱い」にする
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// イベント発行はベストエフォート。失敗はログだけ残す。
func (u *OrderUsecase) publishEvent(ctx context.Context, ev event.OrderEvent) {
	if u.events == nil {
		return
	}
	if err := u.events.PublishOrderEvent(ctx, ev); err != nil {
		orderLogger.Warn().Err(err).Int64("order_id", ev.OrderID).Str("type", ev.Type).Msg("publish order event failed")
	}
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID: it.ProductID,
			Name:      it.ProductNameSnapshot,
			Price:     it.UnitPriceSnapshot,
			Quantity:  it.Quantity,
		})
	}

	return OrderOutput{
		ID:            o.ID,
		UserID:        o.UserID,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		TotalPrice:    o.TotalPrice,
		Shipping:      o.Shipping,
		DeliveredAt:   o.DeliveredAt,
		CreatedAt:     o.CreatedAt,
		Items:         outItems,
	}
}
