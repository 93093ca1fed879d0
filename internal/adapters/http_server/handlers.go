// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"roomledger/internal/app"
	"roomledger/internal/domain"
)

type Handlers struct {
	Q        *app.QueryService
	Tx       *app.TransactionService
	Sessions *app.SessionService
	Suggest  *app.SuggestionService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Post("/v1/sessions", h.connect)
	s.mux.Delete("/v1/sessions", h.disconnect)

	s.mux.Get("/v1/rooms", h.listRooms)
	s.mux.Get("/v1/rooms/{id}", h.getRoom)
	s.mux.Post("/v1/rooms", h.mintRoom)
	s.mux.Post("/v1/rooms/{id}/book", h.bookRoom)
	s.mux.Put("/v1/rooms/{id}/image", h.updateImage)

	s.mux.Post("/v1/suggestions", h.suggestImage)
	s.mux.Get("/v1/transactions/{digest}", h.txStatus)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeDomainErr maps service errors onto problem responses.
func writeDomainErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNoSession):
		writeProblem(w, http.StatusUnauthorized, "No Session", "connect a wallet first")
	case errors.Is(err, domain.ErrRoleRequired):
		writeProblem(w, http.StatusForbidden, "Role Required", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrPastDate),
		errors.Is(err, domain.ErrAlreadyOwned),
		errors.Is(err, domain.ErrNotRoomOwner):
		writeProblem(w, http.StatusConflict, "Booking Rejected", err.Error())
	case errors.Is(err, domain.ErrBadInput):
		writeProblem(w, http.StatusBadRequest, "Invalid Input", err.Error())
	default:
		writeProblem(w, http.StatusBadGateway, "Upstream Error", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeWithETag(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag) // include ETag on 304
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

// session resolves the caller's session from X-Session-Token.
func (h *Handlers) session(r *http.Request) (domain.Session, error) {
	return h.Sessions.Get(r.Context(), r.Header.Get("X-Session-Token"))
}

// ---- sessions ----

func (h *Handlers) connect(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Wallet string      `json:"wallet"`
		Role   domain.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "expected JSON {wallet, role}")
		return
	}
	sess, err := h.Sessions.Connect(r.Context(), in.Wallet, in.Role)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (h *Handlers) disconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Disconnect(r.Context(), r.Header.Get("X-Session-Token")); err != nil {
		writeDomainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- rooms ----

func (h *Handlers) listRooms(w http.ResponseWriter, r *http.Request) {
	q := domain.RoomsQuery{Limit: 50}
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 200 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 200")
			return
		}
		q.Limit = l
	}
	if owner := r.URL.Query().Get("owner"); owner != "" {
		q.Owner = &owner
	}
	cutoff := app.TodayYYYYMMDD()
	if ss := r.URL.Query().Get("since"); ss != "" {
		n, err := strconv.ParseInt(ss, 10, 64)
		if err != nil || n <= 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid since", "since must be YYYYMMDD")
			return
		}
		cutoff = n
	}

	window := r.URL.Query().Get("window")
	switch window {
	case "", "all", "upcoming", "past":
	default:
		writeProblem(w, http.StatusBadRequest, "Invalid window", "window must be upcoming, past or all")
		return
	}
	if window == "upcoming" {
		// push the cutoff into the query; no post-filtering needed
		q.Since = &cutoff
	}

	page, err := h.Q.ListRooms(r.Context(), q)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	if window == "past" {
		_, past := app.PartitionRooms(page.Items, cutoff)
		page.Items = past
	}
	writeWithETag(w, r, page)
}

func (h *Handlers) getRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.Q.GetRoom(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeWithETag(w, r, room)
}

func (h *Handlers) mintRoom(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	var in app.MintInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "expected JSON mint input")
		return
	}
	rcpt, err := h.Tx.MintRoom(r.Context(), sess, in)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, rcpt)
}

func (h *Handlers) bookRoom(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	rcpt, err := h.Tx.BookRoom(r.Context(), sess, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, rcpt)
}

func (h *Handlers) updateImage(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	var in struct {
		ImageURL  string `json:"image_url"`
		ImageHash string `json:"image_hash"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "expected JSON {image_url, image_hash}")
		return
	}
	rcpt, err := h.Tx.UpdateRoomImage(r.Context(), sess, chi.URLParam(r, "id"), in.ImageURL, in.ImageHash)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, rcpt)
}

// ---- suggestions / transactions ----

func (h *Handlers) suggestImage(w http.ResponseWriter, r *http.Request) {
	var in domain.SuggestionRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "expected JSON suggestion request")
		return
	}
	sug, err := h.Suggest.SuggestImage(r.Context(), in)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sug)
}

func (h *Handlers) txStatus(w http.ResponseWriter, r *http.Request) {
	rcpt, err := h.Tx.TransactionStatus(r.Context(), chi.URLParam(r, "digest"))
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rcpt)
}
