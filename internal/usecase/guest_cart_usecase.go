package usecase

import (
	"context"
	"net/http"

	repo "app/internal/repository"
)

// 未ログイン訪問者のカート。DBではなくRedisにトークン単位で持つ。
// ログイン後に /cart/merge で取り込む。
type GuestCartUsecase struct {
	store    repo.GuestCartStore
	products repo.ProductRepository
}

func NewGuestCartUsecase(store repo.GuestCartStore, products repo.ProductRepository) *GuestCartUsecase {
	return &GuestCartUsecase{store: store, products: products}
}

// トークンのカートを返す。無ければ空。
func (u *GuestCartUsecase) Get(ctx context.Context, token string) (CartResponse, error) {
	if token == "" {
		return CartResponse{Items: []CartItemResponse{}}, nil
	}

	cart, err := u.store.Get(ctx, token)
	if err == repo.ErrNotFound {
		return CartResponse{Items: []CartItemResponse{}}, nil
	}
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "store error")
	}

	return u.buildResponse(ctx, cart)
}

// 追加。同一商品は加算。quantity <= 0 は削除依頼。
func (u *GuestCartUsecase) Add(ctx context.Context, token string, in AddCartInput) (CartResponse, error) {
	if token == "" {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid cart_token")
	}
	if in.ProductID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	if in.Quantity <= 0 {
		return u.Remove(ctx, token, in.ProductID)
	}

	p, err := u.products.FindByID(ctx, in.ProductID)
	if err == repo.ErrNotFound {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !p.IsActive {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, "product not found")
	}

	cart, err := u.store.Get(ctx, token)
	if err != nil && err != repo.ErrNotFound {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "store error")
	}

	found := false
	for i := range cart.Items {
		if cart.Items[i].ProductID == in.ProductID {
			cart.Items[i].Quantity += in.Quantity
			found = true
			break
		}
	}
	if !found {
		cart.Items = append(cart.Items, repo.GuestCartItem{
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
		})
	}

	if err := u.store.Save(ctx, token, cart); err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "store error")
	}

	return u.buildResponse(ctx, cart)
}

// 明細を行ごと削除。
func (u *GuestCartUsecase) Remove(ctx context.Context, token string, productID int64) (CartResponse, error) {
	if token == "" {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid cart_token")
	}
	if productID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}

	cart, err := u.store.Get(ctx, token)
	if err == repo.ErrNotFound {
		return CartResponse{Items: []CartItemResponse{}}, nil
	}
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "store error")
	}

	kept := cart.Items[:0]
	for _, it := range cart.Items {
		if it.ProductID != productID {
			kept = append(kept, it)
		}
	}
	cart.Items = kept

	if err := u.store.Save(ctx, token, cart); err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "store error")
	}

	return u.buildResponse(ctx, cart)
}

// 合計はログインカートと同じく現在価格から都度計算する。
func (u *GuestCartUsecase) buildResponse(ctx context.Context, cart repo.GuestCart) (CartResponse, error) {
	respItems := make([]CartItemResponse, 0, len(cart.Items))
	var total int64 = 0

	for _, it := range cart.Items {
		p, err := u.products.FindByID(ctx, it.ProductID)
		if err == repo.ErrNotFound {
			continue
		}
		if err != nil {
			return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !p.IsActive {
			continue
		}

		respItems = append(respItems, CartItemResponse{
			ProductID: it.ProductID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  it.Quantity,
		})

		total += p.Price * it.Quantity
	}

	return CartResponse{Items: respItems, TotalPrice: total}, nil
}
