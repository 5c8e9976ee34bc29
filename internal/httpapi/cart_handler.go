package httpapi

import (
	"net/http"

	"pasarku-be/internal/cart"
	"pasarku-be/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type CartHandler struct {
	carts cart.Service
}

func NewCartHandler(carts cart.Service) *CartHandler {
	return &CartHandler{carts: carts}
}

func (h *CartHandler) Routes(r chi.Router) {
	r.Get("/", h.getCart)
	r.Delete("/", h.clearCart)
	r.Post("/items", h.addItem)
	r.Put("/items/{id}", h.updateItem)
	r.Delete("/items/{id}", h.removeItem)
	r.Post("/transfer", h.transfer)
	r.Post("/validate", h.validate)
	r.Post("/extend", h.extend)
}

func (h *CartHandler) getCart(w http.ResponseWriter, r *http.Request) {
	owner := resolveOwner(w, r)

	c, err := h.carts.GetOrCreate(r.Context(), owner)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartView(c))
}

type addItemRequest struct {
	ItemID            int64  `json:"itemId"`
	Quantity          int    `json:"quantity"`
	ProductAttributes string `json:"productAttributes"`
}

func (h *CartHandler) addItem(w http.ResponseWriter, r *http.Request) {
	owner := resolveOwner(w, r)

	var req addItemRequest
	if !decodeBody(w, r, &req) {
		return
	}

	c, err := h.carts.AddItem(r.Context(), owner, cart.AddItemParams{
		ItemID:            req.ItemID,
		Quantity:          req.Quantity,
		ProductAttributes: req.ProductAttributes,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartView(c))
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) updateItem(w http.ResponseWriter, r *http.Request) {
	owner := resolveOwner(w, r)

	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid cart item id")
		return
	}

	var req updateItemRequest
	if !decodeBody(w, r, &req) {
		return
	}

	c, err := h.carts.UpdateItem(r.Context(), owner, itemID, req.Quantity)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartView(c))
}

func (h *CartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	owner := resolveOwner(w, r)

	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid cart item id")
		return
	}

	c, err := h.carts.RemoveItem(r.Context(), owner, itemID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartView(c))
}

func (h *CartHandler) clearCart(w http.ResponseWriter, r *http.Request) {
	owner := resolveOwner(w, r)

	c, err := h.carts.Clear(r.Context(), owner)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartView(c))
}

// transfer requires an authenticated user; the guest session to absorb comes
// from the query string.
func (h *CartHandler) transfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	sessionID := r.URL.Query().Get("guestSessionId")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "guestSessionId is required")
		return
	}

	c, err := h.carts.TransferGuestToUser(r.Context(), sessionID, userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartView(c))
}

func (h *CartHandler) validate(w http.ResponseWriter, r *http.Request) {
	owner := resolveOwner(w, r)

	c, err := h.carts.Validate(r.Context(), owner)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartView(c))
}

type extendRequest struct {
	Days int `json:"days"`
}

func (h *CartHandler) extend(w http.ResponseWriter, r *http.Request) {
	owner := resolveOwner(w, r)

	var req extendRequest
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}

	c, err := h.carts.ExtendExpiration(r.Context(), owner, req.Days)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartView(c))
}
