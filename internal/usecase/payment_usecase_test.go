package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"app/internal/domain/model"
	"app/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type gatewayMock struct{ mock.Mock }

func (m *gatewayMock) CreateIntent(ctx context.Context, amount int64, currency string) (string, string, error) {
	args := m.Called(ctx, amount, currency)
	return args.String(0), args.String(1), args.Error(2)
}

type paymentFixture struct {
	uc       *usecase.PaymentUsecase
	payments *PaymentRepoMock
	orders   *OrderRepoMock
	gateway  *gatewayMock
}

func newPaymentFixture() paymentFixture {
	f := paymentFixture{
		payments: new(PaymentRepoMock),
		orders:   new(OrderRepoMock),
		gateway:  new(gatewayMock),
	}

	tx := &TxManagerStub{Repos: &TxReposStub{
		PaymentsRepo: f.payments,
		OrdersRepo:   f.orders,
	}}

	f.uc = usecase.NewPaymentUsecase(tx, f.payments, f.orders, f.gateway, nil)
	return f
}

func TestPaymentUsecase_CreateIntent_AmountComesFromOrder(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture()

	f.orders.On("FindByID", ctx, int64(55)).Return(model.Order{ID: 55, UserID: 1, TotalPrice: 2500, PaymentStatus: model.OrderPaymentUnpaid}, nil)
	f.gateway.On("CreateIntent", ctx, int64(2500), "jpy").Return("pi_123", "secret_123", nil)
	f.payments.On("Create", ctx, mock.MatchedBy(func(p model.Payment) bool {
		return p.OrderID == 55 && p.Amount == 2500 && p.Status == model.PaymentStatusPending && p.ProviderPaymentID == "pi_123"
	})).Return(model.Payment{ID: 3, OrderID: 55, Amount: 2500, Currency: "jpy", Status: model.PaymentStatusPending, ProviderPaymentID: "pi_123"}, nil)

	out, err := f.uc.CreateIntent(ctx, 1, usecase.CreateIntentInput{OrderID: 55})
	assert.NoError(t, err)
	assert.Equal(t, "PENDING", out.Status)
	assert.Equal(t, "secret_123", out.ClientSecret)

	f.payments.AssertExpectations(t)
}

func TestPaymentUsecase_CreateIntent_ForeignOrderIsNotFound(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture()

	f.orders.On("FindByID", ctx, int64(55)).Return(model.Order{ID: 55, UserID: 2}, nil)

	_, err := f.uc.CreateIntent(ctx, 1, usecase.CreateIntentInput{OrderID: 55})
	assertHTTPStatus(t, err, http.StatusNotFound)
}

func TestPaymentUsecase_CreateIntent_PaidOrderRejected(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture()

	f.orders.On("FindByID", ctx, int64(55)).Return(model.Order{ID: 55, UserID: 1, PaymentStatus: model.OrderPaymentPaid}, nil)

	_, err := f.uc.CreateIntent(ctx, 1, usecase.CreateIntentInput{OrderID: 55})
	assertHTTPStatus(t, err, http.StatusBadRequest)
}

func TestPaymentUsecase_CreateIntent_NoGatewayUnavailable(t *testing.T) {
	f := newPaymentFixture()
	uc := usecase.NewPaymentUsecase(&TxManagerStub{Repos: &TxReposStub{}}, f.payments, f.orders, nil, nil)

	_, err := uc.CreateIntent(context.Background(), 1, usecase.CreateIntentInput{OrderID: 55})
	assertHTTPStatus(t, err, http.StatusServiceUnavailable)
}

func TestPaymentUsecase_CreateIntent_GatewayFailureIsBadGateway(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture()

	f.orders.On("FindByID", ctx, int64(55)).Return(model.Order{ID: 55, UserID: 1, TotalPrice: 1000}, nil)
	f.gateway.On("CreateIntent", ctx, int64(1000), "jpy").Return("", "", errors.New("stripe down"))

	_, err := f.uc.CreateIntent(ctx, 1, usecase.CreateIntentInput{OrderID: 55})
	assertHTTPStatus(t, err, http.StatusBadGateway)
}

func TestPaymentUsecase_UpdateStatus_SucceededMarksOrderPaid(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture()

	f.payments.On("FindByID", ctx, int64(3)).Return(model.Payment{ID: 3, UserID: 1, OrderID: 55, Status: model.PaymentStatusPending}, nil)
	f.payments.On("UpdateStatus", ctx, int64(3), model.PaymentStatusSucceeded).Return(nil)
	f.orders.On("UpdatePaymentStatus", ctx, int64(55), model.OrderPaymentPaid).Return(nil)

	out, err := f.uc.UpdateStatus(ctx, 1, 3, "SUCCEEDED")
	assert.NoError(t, err)
	assert.Equal(t, "SUCCEEDED", out.Status)

	f.orders.AssertExpectations(t)
}

func TestPaymentUsecase_UpdateStatus_FailedLeavesOrderUnpaid(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture()

	f.payments.On("FindByID", ctx, int64(3)).Return(model.Payment{ID: 3, UserID: 1, OrderID: 55, Status: model.PaymentStatusPending}, nil)
	f.payments.On("UpdateStatus", ctx, int64(3), model.PaymentStatusFailed).Return(nil)

	out, err := f.uc.UpdateStatus(ctx, 1, 3, "FAILED")
	assert.NoError(t, err)
	assert.Equal(t, "FAILED", out.Status)

	f.orders.AssertNotCalled(t, "UpdatePaymentStatus", mock.Anything, mock.Anything, mock.Anything)
}

// 一度確定した決済は更新できない
func TestPaymentUsecase_UpdateStatus_FinalizedPaymentConflicts(t *testing.T) {
	for _, status := range []model.PaymentStatus{model.PaymentStatusSucceeded, model.PaymentStatusFailed} {
		ctx := context.Background()
		f := newPaymentFixture()

		f.payments.On("FindByID", ctx, int64(3)).Return(model.Payment{ID: 3, UserID: 1, Status: status}, nil)

		_, err := f.uc.UpdateStatus(ctx, 1, 3, "SUCCEEDED")
		assertHTTPStatus(t, err, http.StatusConflict)

		f.payments.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	}
}

func TestPaymentUsecase_UpdateStatus_PendingIsNotAValidTarget(t *testing.T) {
	f := newPaymentFixture()

	_, err := f.uc.UpdateStatus(context.Background(), 1, 3, "PENDING")
	assertHTTPStatus(t, err, http.StatusBadRequest)
}

func TestPaymentUsecase_UpdateStatus_ForeignPaymentIsNotFound(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture()

	f.payments.On("FindByID", ctx, int64(3)).Return(model.Payment{ID: 3, UserID: 2, Status: model.PaymentStatusPending}, nil)

	_, err := f.uc.UpdateStatus(ctx, 1, 3, "SUCCEEDED")
	assertHTTPStatus(t, err, http.StatusNotFound)
}
