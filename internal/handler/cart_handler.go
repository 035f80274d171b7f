package handler

import (
	"net/http"
	"strconv"

	"app/internal/config"
	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ゲストカートのトークンを運ぶヘッダー
const cartTokenHeader = "X-Cart-Token"

// /cartのHTTP
type CartHandler struct {
	uc      *usecase.CartUsecase
	guestUC *usecase.GuestCartUsecase
}

// DI
func NewCartHandler(uc *usecase.CartUsecase, guestUC *usecase.GuestCartUsecase) *CartHandler {
	return &CartHandler{uc: uc, guestUC: guestUC}
}

type AddCartRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type MergeCartRequest struct {
	CartToken string `json:"cart_token"`
}

// ログイン用の/cartとゲスト用の/guest/cartを登録
func (h *CartHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/cart")
	g.Use(middleware.AuthJWT(cfg))

	g.GET("", h.getCart)
	g.POST("", h.addToCart)
	g.POST("/clear", h.clearCart)
	g.POST("/merge", h.mergeGuestCart)
	g.DELETE("/items/:product_id", h.removeItem)

	//ゲストカートは認証なし。X-Cart-Tokenで識別する
	e.GET("/guest/cart", h.guestGet)
	e.POST("/guest/cart", h.guestAdd)
	e.DELETE("/guest/cart/items/:product_id", h.guestRemoveItem)
}

func (h *CartHandler) getCart(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.uc.GetCart(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) addToCart(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req AddCartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.AddToCart(c.Request().Context(), userID, usecase.AddCartInput{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) removeItem(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	productID, err := strconv.ParseInt(c.Param("product_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product_id"})
	}

	out, err := h.uc.RemoveFromCart(c.Request().Context(), userID, productID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) clearCart(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.uc.ClearCart(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

// POST /cart/merge。ゲストカートをユーザーのカートへ1回だけ取り込む。
func (h *CartHandler) mergeGuestCart(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req MergeCartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if req.CartToken == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "cart_token required"})
	}

	out, err := h.uc.MergeGuestCart(c.Request().Context(), userID, req.CartToken)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) guestGet(c echo.Context) error {
	token := c.Request().Header.Get(cartTokenHeader)

	out, err := h.guestUC.Get(c.Request().Context(), token)
	if err != nil {
		return writeError(c, err)
	}

	if token != "" {
		c.Response().Header().Set(cartTokenHeader, token)
	}
	return c.JSON(http.StatusOK, out)
}

// トークンが無ければ新規発行してレスポンスヘッダで返す
func (h *CartHandler) guestAdd(c echo.Context) error {
	token := c.Request().Header.Get(cartTokenHeader)
	if token == "" {
		token = uuid.NewString()
	}

	var req AddCartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.guestUC.Add(c.Request().Context(), token, usecase.AddCartInput{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		return writeError(c, err)
	}

	c.Response().Header().Set(cartTokenHeader, token)
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) guestRemoveItem(c echo.Context) error {
	token := c.Request().Header.Get(cartTokenHeader)
	if token == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "cart token required"})
	}

	productID, err := strconv.ParseInt(c.Param("product_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product_id"})
	}

	out, err := h.guestUC.Remove(c.Request().Context(), token, productID)
	if err != nil {
		return writeError(c, err)
	}

	c.Response().Header().Set(cartTokenHeader, token)
	return c.JSON(http.StatusOK, out)
}
