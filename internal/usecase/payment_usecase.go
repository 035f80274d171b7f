package usecase

import (
	"context"
	"net/http"
	"time"

	"app/internal/domain/model"
	"app/internal/metrics"
	repo "app/internal/repository"
)

// 決済プロバイダの抽象。実体はStripe。
type PaymentGateway interface {
	CreateIntent(ctx context.Context, amount int64, currency string) (providerID string, clientSecret string, err error)
}

type PaymentUsecase struct {
	tx       repo.TransactionManager
	payments repo.PaymentRepository
	orders   repo.OrderRepository
	gateway  PaymentGateway
	metrics  *metrics.AppMetrics
}

func NewPaymentUsecase(
	tx repo.TransactionManager,
	payments repo.PaymentRepository,
	orders repo.OrderRepository,
	gateway PaymentGateway,
	m *metrics.AppMetrics,
) *PaymentUsecase {
	return &PaymentUsecase{tx: tx, payments: payments, orders: orders, gateway: gateway, metrics: m}
}

type CreateIntentInput struct {
	OrderID  int64
	Currency string
}

type PaymentOutput struct {
	ID                int64     `json:"id"`
	OrderID           int64     `json:"order_id"`
	Amount            int64     `json:"amount"`
	Currency          string    `json:"currency"`
	Status            string    `json:"status"`
	ProviderPaymentID string    `json:"provider_payment_id"`
	ClientSecret      string    `json:"client_secret,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// CreateIntent は注文に対する決済intentを作り、PENDINGで記録する。
// 金額と通貨は注文から確定し、クライアント指定は受け付けない（通貨の既定はjpy）。
func (u *PaymentUsecase) CreateIntent(ctx context.Context, userID int64, in CreateIntentInput) (PaymentOutput, error) {
	if userID <= 0 {
		return PaymentOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.OrderID <= 0 {
		return PaymentOutput{}, NewHTTPError(http.StatusBadRequest, "invalid order_id")
	}
	if u.gateway == nil {
		return PaymentOutput{}, NewHTTPError(http.StatusServiceUnavailable, "payment unavailable")
	}

	currency := in.Currency
	if currency == "" {
		currency = "jpy"
	}

	order, err := u.orders.FindByID(ctx, in.OrderID)
	if err == repo.ErrNotFound {
		return PaymentOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return PaymentOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	//他人の注文は存在しない扱い
	if order.UserID != userID {
		return PaymentOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if order.PaymentStatus == model.OrderPaymentPaid {
		return PaymentOutput{}, NewHTTPError(http.StatusBadRequest, "already paid")
	}

	providerID, clientSecret, err := u.gateway.CreateIntent(ctx, order.TotalPrice, currency)
	if err != nil {
		return PaymentOutput{}, NewHTTPError(http.StatusBadGateway, "payment provider error")
	}

	created, err := u.payments.Create(ctx, model.Payment{
		UserID:            userID,
		OrderID:           order.ID,
		Amount:            order.TotalPrice,
		Currency:          currency,
		ProviderPaymentID: providerID,
		Status:            model.PaymentStatusPending,
	})
	if err != nil {
		return PaymentOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	out := toPaymentOutput(created)
	out.ClientSecret = clientSecret
	return out, nil
}

// UpdateStatus はPENDINGの決済を一度だけ確定する。
// 確定済み（SUCCEEDED / FAILED）の再更新は409。
// SUCCEEDEDのときだけ注文をPAIDにする。両更新は同一トランザクション。
func (u *PaymentUsecase) UpdateStatus(ctx context.Context, userID int64, paymentID int64, newStatus string) (PaymentOutput, error) {
	if userID <= 0 {
		return PaymentOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if paymentID <= 0 {
		return PaymentOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	to := model.PaymentStatus(newStatus)
	if to != model.PaymentStatusSucceeded && to != model.PaymentStatusFailed {
		return PaymentOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var out PaymentOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Payments().FindByID(ctx, paymentID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if p.UserID != userID {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if p.Status != model.PaymentStatusPending {
			return NewHTTPError(http.StatusConflict, "payment already finalized")
		}

		if err := r.Payments().UpdateStatus(ctx, paymentID, to); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if to == model.PaymentStatusSucceeded {
			if err := r.Orders().UpdatePaymentStatus(ctx, p.OrderID, model.OrderPaymentPaid); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}

		p.Status = to
		out = toPaymentOutput(p)
		return nil
	})

	if err != nil {
		return PaymentOutput{}, err
	}

	u.metrics.RecordPaymentConfirmed(ctx, string(to))
	return out, nil
}

func (u *PaymentUsecase) ListMyPayments(ctx context.Context, userID int64) ([]PaymentOutput, error) {
	if userID <= 0 {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	rows, err := u.payments.ListByUserID(ctx, userID)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	outs := make([]PaymentOutput, 0, len(rows))
	for _, p := range rows {
		outs = append(outs, toPaymentOutput(p))
	}
	return outs, nil
}

func toPaymentOutput(p model.Payment) PaymentOutput {
	return PaymentOutput{
		ID:                p.ID,
		OrderID:           p.OrderID,
		Amount:            p.Amount,
		Currency:          p.Currency,
		Status:            string(p.Status),
		ProviderPaymentID: p.ProviderPaymentID,
		CreatedAt:         p.CreatedAt,
	}
}
