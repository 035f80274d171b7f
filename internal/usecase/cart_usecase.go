package usecase

import (
	"context"
	"net/http"

	"app/internal/metrics"
	repo "app/internal/repository"
)

// CartUsecase は /cart の業務ロジック。
// 合計は信用しない：変更のたびに全明細の現在価格を読み直して再計算する。
type CartUsecase struct {
	tx      repo.TransactionManager
	guests  repo.GuestCartStore
	metrics *metrics.AppMetrics
}

func NewCartUsecase(
	tx repo.TransactionManager,
	guests repo.GuestCartStore,
	m *metrics.AppMetrics,
) *CartUsecase {
	return &CartUsecase{
		tx:      tx,
		guests:  guests,
		metrics: m,
	}
}

type CartItemResponse struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
}

type CartResponse struct {
	Items      []CartItemResponse `json:"items"`
	TotalPrice int64              `json:"total_price"`
}

type AddCartInput struct {
	ProductID int64
	Quantity  int64
}

// GetCart はカート取得（無ければACTIVEを作って空を返す）。
// 読み取りでも合計は現在価格から再計算して返す。
func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var out CartResponse

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().GetOrCreateActiveByUserID(ctx, userID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out, err = u.rebuildCart(ctx, r, cart.ID)
		return err
	})

	if err != nil {
		return CartResponse{}, err
	}
	return out, nil
}

// AddToCart はカートに追加（同一商品は数量加算）。
// quantity <= 0 は削除依頼として扱う（エラーにしない）。
func (u *CartUsecase) AddToCart(ctx context.Context, userID int64, in AddCartInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.ProductID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	if in.Quantity <= 0 {
		return u.RemoveFromCart(ctx, userID, in.ProductID)
	}

	var out CartResponse

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().GetOrCreateActiveByUserID(ctx, userID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		// 商品チェック（公開のみ）
		p, err := r.Products().FindByID(ctx, in.ProductID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "product not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !p.IsActive {
			return NewHTTPError(http.StatusNotFound, "product not found")
		}

		// 既存数量＋追加分が在庫を超えないか
		var existingQty int64
		existing, err := r.CartItems().FindByCartAndProduct(ctx, cart.ID, in.ProductID)
		if err == nil {
			existingQty = existing.Quantity
		} else if err != repo.ErrNotFound {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if existingQty+in.Quantity > p.Stock {
			return NewHTTPError(http.StatusBadRequest, "stock exceeded")
		}

		if err := r.CartItems().AddQuantity(ctx, cart.ID, in.ProductID, in.Quantity); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out, err = u.rebuildCart(ctx, r, cart.ID)
		return err
	})

	if err != nil {
		return CartResponse{}, err
	}

	u.metrics.RecordCartMutation(ctx, "add")
	return out, nil
}

// RemoveFromCart は明細を行ごと削除する（数量に関係なく）。
func (u *CartUsecase) RemoveFromCart(ctx context.Context, userID int64, productID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}

	var out CartResponse

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().FindActiveByUserID(ctx, userID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "cart not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		// 無い行の削除は成功扱い（結果は同じ空）
		if err := r.CartItems().DeleteByCartAndProduct(ctx, cart.ID, productID); err != nil && err != repo.ErrNotFound {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out, err = u.rebuildCart(ctx, r, cart.ID)
		return err
	})

	if err != nil {
		return CartResponse{}, err
	}

	u.metrics.RecordCartMutation(ctx, "remove")
	return out, nil
}

// ClearCart は明細を全削除して合計をゼロに戻す。
func (u *CartUsecase) ClearCart(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().FindActiveByUserID(ctx, userID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "cart not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := r.Carts().Clear(ctx, cart.ID); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})

	if err != nil {
		return CartResponse{}, err
	}

	u.metrics.RecordCartMutation(ctx, "clear")
	return CartResponse{Items: []CartItemResponse{}, TotalPrice: 0}, nil
}

// MergeGuestCart はログイン時に未ログインカートを取り込む。
// 商品ごとの和集合（数量は加算）を一度だけ適用し、取り込み後にトークンを破棄する。
func (u *CartUsecase) MergeGuestCart(ctx context.Context, userID int64, token string) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if token == "" {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid cart_token")
	}

	guest, err := u.guests.Get(ctx, token)
	if err == repo.ErrNotFound {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, "guest cart not found")
	}
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "store error")
	}

	var out CartResponse

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().GetOrCreateActiveByUserID(ctx, userID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		for _, gi := range guest.Items {
			if gi.Quantity <= 0 {
				continue
			}

			// 取り込み時点で消えた・非公開の商品は黙って落とす
			p, err := r.Products().FindByID(ctx, gi.ProductID)
			if err == repo.ErrNotFound {
				continue
			}
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !p.IsActive {
				continue
			}

			if err := r.CartItems().AddQuantity(ctx, cart.ID, gi.ProductID, gi.Quantity); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}

		out, err = u.rebuildCart(ctx, r, cart.ID)
		return err
	})

	if err != nil {
		return CartResponse{}, err
	}

	//取り込みは一度きり
	if err := u.guests.Delete(ctx, token); err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "store error")
	}

	u.metrics.RecordCartMutation(ctx, "merge")
	return out, nil
}

// rebuildCart は明細を読み、商品ごとに現在価格を読み直して合計を作り、
// carts.total_price に書き戻す。合計はキャッシュであって事実ではない。
func (u *CartUsecase) rebuildCart(ctx context.Context, r repo.TxRepos, cartID int64) (CartResponse, error) {
	items, err := r.CartItems().ListByCartID(ctx, cartID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	respItems := make([]CartItemResponse, 0, len(items))
	var total int64 = 0

	for _, it := range items {
		p, err := r.Products().FindByID(ctx, it.ProductID)
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

	if err := r.Carts().UpdateTotal(ctx, cartID, total); err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return CartResponse{Items: respItems, TotalPrice: total}, nil
}
