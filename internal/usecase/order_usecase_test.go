package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"app/internal/domain/model"
	repo "app/internal/repository"
	"app/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type orderFixture struct {
	uc        *usecase.OrderUsecase
	carts     *CartRepoMock
	items     *CartItemRepoMock
	products  *ProductRepoMock
	orders    *OrderRepoMock
	lines     *OrderItemRepoMock
	inventory *InventoryRepoMock
	addresses *AddressRepoMock
	publisher *PublisherMock
}

func newOrderFixture() orderFixture {
	f := orderFixture{
		carts:     new(CartRepoMock),
		items:     new(CartItemRepoMock),
		products:  new(ProductRepoMock),
		orders:    new(OrderRepoMock),
		lines:     new(OrderItemRepoMock),
		inventory: new(InventoryRepoMock),
		addresses: new(AddressRepoMock),
		publisher: new(PublisherMock),
	}

	tx := &TxManagerStub{Repos: &TxReposStub{
		CartsRepo:      f.carts,
		CartItemsRepo:  f.items,
		ProductsRepo:   f.products,
		OrdersRepo:     f.orders,
		OrderItemsRepo: f.lines,
		InventoryRepo:  f.inventory,
	}}

	f.uc = usecase.NewOrderUsecase(tx, f.addresses, f.publisher, nil)
	return f
}

func TestOrderUsecase_PlaceOrder_SnapshotsItemsAndResetsCart(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture()

	f.addresses.On("FindByID", ctx, int64(7)).Return(model.Address{ID: 7, UserID: 1, Prefecture: "Tokyo", City: "Chiyoda"}, nil)
	f.carts.On("FindActiveByUserID", ctx, int64(1)).Return(model.Cart{ID: 10, UserID: 1, TotalPrice: 2500}, nil)
	f.items.On("ListByCartID", ctx, int64(10)).Return([]model.CartItem{
		{CartID: 10, ProductID: 100, Quantity: 2},
		{CartID: 10, ProductID: 200, Quantity: 1},
	}, nil)

	f.products.On("FindByID", ctx, int64(100)).Return(model.Product{ID: 100, Name: "mug", Price: 1000, IsActive: true}, nil)
	f.products.On("FindByID", ctx, int64(200)).Return(model.Product{ID: 200, Name: "pen", Price: 500, IsActive: true}, nil)

	f.inventory.On("DecreaseStockIfEnough", ctx, int64(100), int64(2)).Return(true, nil)
	f.inventory.On("DecreaseStockIfEnough", ctx, int64(200), int64(1)).Return(true, nil)

	f.orders.On("Create", ctx, mock.MatchedBy(func(o model.Order) bool {
		return o.UserID == 1 &&
			o.Status == model.OrderStatusProcessing &&
			o.PaymentStatus == model.OrderPaymentUnpaid &&
			o.TotalPrice == 2500 &&
			o.Shipping.Prefecture == "Tokyo"
	})).Return(int64(55), nil)

	f.lines.On("CreateBulk", ctx, int64(55), mock.MatchedBy(func(items []model.OrderItem) bool {
		if len(items) != 2 {
			return false
		}
		//名前と価格は注文時点のスナップショット
		return items[0].ProductNameSnapshot == "mug" && items[0].UnitPriceSnapshot == 1000 &&
			items[1].ProductNameSnapshot == "pen" && items[1].UnitPriceSnapshot == 500
	})).Return(nil)

	f.carts.On("UpdateStatus", ctx, int64(10), model.CartStatusCheckedOut).Return(nil)
	f.carts.On("Clear", ctx, int64(10)).Return(nil)

	f.publisher.On("PublishOrderEvent", ctx, mock.Anything).Return(nil)

	out, err := f.uc.PlaceOrder(ctx, 1, usecase.PlaceOrderInput{AddressID: 7})
	assert.NoError(t, err)
	assert.Equal(t, int64(55), out.ID)
	assert.Equal(t, string(model.OrderStatusProcessing), out.Status)
	assert.Equal(t, int64(2500), out.TotalPrice)
	assert.Len(t, out.Items, 2)

	f.orders.AssertExpectations(t)
	f.lines.AssertExpectations(t)
	f.carts.AssertExpectations(t)
}

func TestOrderUsecase_PlaceOrder_EmptyCartRejected(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture()

	f.addresses.On("FindByID", ctx, int64(7)).Return(model.Address{ID: 7, UserID: 1}, nil)
	f.carts.On("FindActiveByUserID", ctx, int64(1)).Return(model.Cart{ID: 10}, nil)
	f.items.On("ListByCartID", ctx, int64(10)).Return([]model.CartItem{}, nil)

	_, err := f.uc.PlaceOrder(ctx, 1, usecase.PlaceOrderInput{AddressID: 7})
	assertHTTPStatus(t, err, http.StatusBadRequest)

	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrderUsecase_PlaceOrder_NoActiveCartRejected(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture()

	f.addresses.On("FindByID", ctx, int64(7)).Return(model.Address{ID: 7, UserID: 1}, nil)
	f.carts.On("FindActiveByUserID", ctx, int64(1)).Return(model.Cart{}, repo.ErrNotFound)

	_, err := f.uc.PlaceOrder(ctx, 1, usecase.PlaceOrderInput{AddressID: 7})
	assertHTTPStatus(t, err, http.StatusBadRequest)
}

func TestOrderUsecase_PlaceOrder_OutOfStockRejected(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture()

	f.addresses.On("FindByID", ctx, int64(7)).Return(model.Address{ID: 7, UserID: 1}, nil)
	f.carts.On("FindActiveByUserID", ctx, int64(1)).Return(model.Cart{ID: 10, TotalPrice: 1000}, nil)
	f.items.On("ListByCartID", ctx, int64(10)).Return([]model.CartItem{
		{CartID: 10, ProductID: 100, Quantity: 5},
	}, nil)
	f.products.On("FindByID", ctx, int64(100)).Return(model.Product{ID: 100, Name: "mug", Price: 200, IsActive: true}, nil)
	f.inventory.On("DecreaseStockIfEnough", ctx, int64(100), int64(5)).Return(false, nil)

	_, err := f.uc.PlaceOrder(ctx, 1, usecase.PlaceOrderInput{AddressID: 7})
	assertHTTPStatus(t, err, http.StatusBadRequest)

	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrderUsecase_PlaceOrder_ForeignAddressForbidden(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture()

	//住所はuser 2のもの
	f.addresses.On("FindByID", ctx, int64(7)).Return(model.Address{ID: 7, UserID: 2}, nil)

	_, err := f.uc.PlaceOrder(ctx, 1, usecase.PlaceOrderInput{AddressID: 7})
	assertHTTPStatus(t, err, http.StatusForbidden)
}

func TestOrderUsecase_GetMyOrderDetail_ForeignOrderIsNotFound(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture()

	f.orders.On("FindByID", ctx, int64(55)).Return(model.Order{ID: 55, UserID: 2}, nil)

	_, err := f.uc.GetMyOrderDetail(ctx, 1, 55)
	assertHTTPStatus(t, err, http.StatusNotFound)
}

func TestOrderUsecase_GetMyOrderDetail_ReturnsSnapshotPrices(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture()

	f.orders.On("FindByID", ctx, int64(55)).Return(model.Order{ID: 55, UserID: 1, Status: model.OrderStatusProcessing, TotalPrice: 2000}, nil)
	f.lines.On("ListByOrderID", ctx, int64(55)).Return([]model.OrderItem{
		{OrderID: 55, ProductID: 100, ProductNameSnapshot: "mug", UnitPriceSnapshot: 1000, Quantity: 2},
	}, nil)

	out, err := f.uc.GetMyOrderDetail(ctx, 1, 55)
	assert.NoError(t, err)
	assert.Equal(t, int64(1000), out.Items[0].Price)
	assert.Equal(t, "mug", out.Items[0].Name)
}

// page/limitはそのままrepositoryへ渡す
func TestOrderUsecase_ListMyOrders_PassesPaging(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture()

	f.orders.On("ListByUserID", ctx, int64(1), 3, 10).Return([]model.Order{
		{ID: 55, UserID: 1, Status: model.OrderStatusProcessing, TotalPrice: 2000},
	}, int64(21), nil)
	f.lines.On("ListByOrderID", ctx, int64(55)).Return([]model.OrderItem{
		{OrderID: 55, ProductID: 100, ProductNameSnapshot: "mug", UnitPriceSnapshot: 1000, Quantity: 2},
	}, nil)

	out, err := f.uc.ListMyOrders(ctx, 1, 3, 10)
	assert.NoError(t, err)
	assert.Equal(t, int64(21), out.Total)
	assert.Equal(t, 3, out.Page)
	assert.Equal(t, 10, out.Limit)
	assert.Len(t, out.Orders, 1)

	f.orders.AssertExpectations(t)
}

// 不正なpage/limitは既定値に丸める
func TestOrderUsecase_ListMyOrders_ClampsPaging(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture()

	f.orders.On("ListByUserID", ctx, int64(1), 1, 20).Return([]model.Order{}, int64(0), nil)

	out, err := f.uc.ListMyOrders(ctx, 1, 0, 9999)
	assert.NoError(t, err)
	assert.Equal(t, 1, out.Page)
	assert.Equal(t, 20, out.Limit)

	f.orders.AssertExpectations(t)
}
