package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"serwer-udostepnien/internal/models"
	"serwer-udostepnien/internal/share"
)

type CreateShareRequest struct {
	NodeID             string     `json:"node_id" example:"_vx2a-43VqRT5wz_s9u4"`
	ShareType          int        `json:"share_type" example:"0"`
	SharedWith         string     `json:"shared_with,omitempty" example:"user2"`
	Permissions        int        `json:"permissions" example:"1"`
	Password           *string    `json:"password,omitempty"`
	SendPasswordByTalk bool       `json:"send_password_by_talk,omitempty"`
	ExpirationDate     *time.Time `json:"expiration_date,omitempty"`
	Label              string     `json:"label,omitempty"`
}

type UpdateShareRequest struct {
	SharedWith         *string    `json:"shared_with,omitempty"`
	Permissions        *int       `json:"permissions,omitempty"`
	Password           *string    `json:"password,omitempty"`
	SendPasswordByTalk *bool      `json:"send_password_by_talk,omitempty"`
	ExpirationDate     *time.Time `json:"expiration_date,omitempty"`
	ClearExpiration    bool       `json:"clear_expiration,omitempty"`
	Label              *string    `json:"label,omitempty"`
}

func (s *Server) writeShareError(w http.ResponseWriter, err error) {
	var validationErr *share.ValidationError
	var policyErr *share.PolicyError
	var vetoErr *share.VetoError

	switch {
	case errors.As(err, &validationErr):
		http.Error(w, validationErr.Reason, http.StatusBadRequest)
	case errors.As(err, &vetoErr):
		http.Error(w, vetoErr.Reason, http.StatusBadRequest)
	case errors.As(err, &policyErr):
		// Only the hint is safe to show; the message stays in the logs.
		s.log.Info().Str("reason", policyErr.Message).Msg("share request rejected by policy")
		http.Error(w, policyErr.Hint, http.StatusForbidden)
	case errors.Is(err, share.ErrNotFound):
		http.Error(w, "Share not found", http.StatusNotFound)
	case errors.Is(err, share.ErrNoSuchProvider):
		http.Error(w, "Unsupported share type", http.StatusBadRequest)
	default:
		s.log.Error().Err(err).Msg("share operation failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) loadShareForCaller(w http.ResponseWriter, r *http.Request) (*models.Share, string, bool) {
	claims := GetUserFromContext(r.Context())
	fullID := chi.URLParam(r, "shareId")

	sh, err := s.manager.GetByID(r.Context(), fullID, claims.UserID)
	if err != nil {
		s.writeShareError(w, err)
		return nil, "", false
	}

	if !s.callerInvolved(r, sh, claims.UserID) {
		http.Error(w, "Share not found", http.StatusNotFound)
		return nil, "", false
	}

	return sh, claims.UserID, true
}

func (s *Server) callerInvolved(r *http.Request, sh *models.Share, uid string) bool {
	if sh.ShareOwner == uid || sh.SharedBy == uid {
		return true
	}
	switch sh.ShareType {
	case models.ShareTypeUser:
		return sh.SharedWith == uid
	case models.ShareTypeGroup:
		member, err := s.store.InGroup(r.Context(), uid, sh.SharedWith)
		return err == nil && member
	}
	return false
}

// @Summary      Create a share
// @Description  Grants access to a node for a user, group, link, email or federated recipient.
// @Tags         shares
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        shareRequest body      CreateShareRequest true "Share details"
// @Success      201          {object}  models.Share
// @Failure      400          {string}  string "Bad Request"
// @Failure      403          {string}  string "Forbidden by sharing policy"
// @Router       /shares [post]
func (s *Server) CreateShareHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	var req CreateShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sh := &models.Share{
		ShareType:          models.ShareType(req.ShareType),
		SharedWith:         req.SharedWith,
		SharedBy:           claims.UserID,
		NodeID:             req.NodeID,
		Permissions:        models.Permissions(req.Permissions),
		Password:           req.Password,
		SendPasswordByTalk: req.SendPasswordByTalk,
		ExpirationDate:     req.ExpirationDate,
		Label:              req.Label,
	}

	created, err := s.manager.Create(r.Context(), sh)
	if err != nil {
		s.writeShareError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

// @Summary      Get a share
// @Tags         shares
// @Produce      json
// @Security     BearerAuth
// @Param        shareId  path      string  true  "Full share id, e.g. internal:42"
// @Success      200      {object}  models.Share
// @Failure      404      {string}  string "Not Found"
// @Router       /shares/{shareId} [get]
func (s *Server) GetShareHandler(w http.ResponseWriter, r *http.Request) {
	sh, _, ok := s.loadShareForCaller(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sh)
}

// @Summary      List shares
// @Description  Lists shares created by the caller, or received by the caller when shared_with_me is set.
// @Tags         shares
// @Produce      json
// @Security     BearerAuth
// @Param        shared_with_me  query     bool    false "List received instead of created shares"
// @Param        share_type      query     int     false "Share type filter" default(0)
// @Param        node_id         query     string  false "Limit to one node"
// @Param        reshares        query     bool    false "Include re-shares of nodes the caller does not own"
// @Success      200             {array}   models.Share
// @Router       /shares [get]
func (s *Server) ListSharesHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	limit, offset := parsePagination(r)

	shareType := models.ShareTypeUser
	if raw := r.URL.Query().Get("share_type"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "Invalid share_type", http.StatusBadRequest)
			return
		}
		shareType = models.ShareType(v)
	}
	nodeID := r.URL.Query().Get("node_id")

	var shares []*models.Share
	var err error
	if r.URL.Query().Get("shared_with_me") == "true" {
		shares, err = s.manager.GetSharedWith(r.Context(), claims.UserID, shareType, nodeID, limit, offset)
	} else {
		reshares := r.URL.Query().Get("reshares") == "true"
		shares, err = s.manager.GetSharesBy(r.Context(), claims.UserID, shareType, nodeID, reshares, limit, offset)
	}
	if err != nil {
		s.writeShareError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(shares)
}

// @Summary      Update a share
// @Description  Changes permissions, password, expiration, label or (for user shares) the recipient.
// @Tags         shares
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        shareId       path      string             true "Full share id"
// @Param        shareRequest  body      UpdateShareRequest true "Fields to change"
// @Success      200           {object}  models.Share
// @Failure      400           {string}  string "Bad Request"
// @Failure      403           {string}  string "Forbidden"
// @Router       /shares/{shareId} [patch]
func (s *Server) UpdateShareHandler(w http.ResponseWriter, r *http.Request) {
	sh, uid, ok := s.loadShareForCaller(w, r)
	if !ok {
		return
	}
	if sh.SharedBy != uid && sh.ShareOwner != uid {
		http.Error(w, "Only the share creator or owner can update it", http.StatusForbidden)
		return
	}

	var req UpdateShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.SharedWith != nil {
		sh.SharedWith = *req.SharedWith
	}
	if req.Permissions != nil {
		sh.Permissions = models.Permissions(*req.Permissions)
	}
	// Absent password means "keep", the manager verifies it against the
	// stored hash either way.
	if req.Password != nil {
		sh.Password = req.Password
	}
	if req.SendPasswordByTalk != nil {
		sh.SendPasswordByTalk = *req.SendPasswordByTalk
	}
	if req.ExpirationDate != nil {
		sh.ExpirationDate = req.ExpirationDate
	}
	if req.ClearExpiration {
		sh.ExpirationDate = nil
	}
	if req.Label != nil {
		sh.Label = *req.Label
	}

	updated, err := s.manager.Update(r.Context(), sh)
	if err != nil {
		s.writeShareError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updated)
}

// @Summary      Delete a share
// @Description  As creator or owner removes the share and its re-share subtree. As recipient detaches only the caller.
// @Tags         shares
// @Security     BearerAuth
// @Param        shareId  path      string  true  "Full share id"
// @Success      204      {null}    nil "No Content"
// @Failure      404      {string}  string "Not Found"
// @Router       /shares/{shareId} [delete]
func (s *Server) DeleteShareHandler(w http.ResponseWriter, r *http.Request) {
	sh, uid, ok := s.loadShareForCaller(w, r)
	if !ok {
		return
	}

	var err error
	if sh.SharedBy == uid || sh.ShareOwner == uid {
		err = s.manager.Delete(r.Context(), sh)
	} else {
		err = s.manager.DeleteFromSelf(r.Context(), sh, uid)
	}
	if err != nil {
		s.writeShareError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary      Restore a self-removed share
// @Description  Undoes a previous recipient-side removal of a group share.
// @Tags         shares
// @Produce      json
// @Security     BearerAuth
// @Param        shareId  path      string  true  "Full share id"
// @Success      200      {object}  models.Share
// @Router       /shares/{shareId}/restore [post]
func (s *Server) RestoreShareHandler(w http.ResponseWriter, r *http.Request) {
	sh, uid, ok := s.loadShareForCaller(w, r)
	if !ok {
		return
	}

	restored, err := s.manager.Restore(r.Context(), sh, uid)
	if err != nil {
		s.writeShareError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(restored)
}

type MoveShareRequest struct {
	Target string `json:"target" example:"/Projekty/Wspólny Projekt"`
}

// @Summary      Move a received share
// @Description  Changes where the share appears in the caller's tree. Only user and group shares can move.
// @Tags         shares
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        shareId  path      string           true "Full share id"
// @Param        request  body      MoveShareRequest true "New target path"
// @Success      200      {object}  models.Share
// @Router       /shares/{shareId}/move [post]
func (s *Server) MoveShareHandler(w http.ResponseWriter, r *http.Request) {
	sh, uid, ok := s.loadShareForCaller(w, r)
	if !ok {
		return
	}

	var req MoveShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Target == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sh.Target = req.Target
	moved, err := s.manager.Move(r.Context(), sh, uid)
	if err != nil {
		s.writeShareError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(moved)
}

// @Summary      Node access list
// @Description  Lists everyone able to reach a node through shares. Owner only.
// @Tags         shares
// @Produce      json
// @Security     BearerAuth
// @Param        nodeId          path      string  true   "Node ID"
// @Param        recursive       query     bool    false  "Consult shares on ancestor folders too"
// @Param        current_access  query     bool    false  "Resolve per-user effective entry points"
// @Success      200             {object}  share.AccessList
// @Router       /nodes/{nodeId}/access-list [get]
func (s *Server) AccessListHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	nodeID := chi.URLParam(r, "nodeId")

	node, err := s.store.GetNode(r.Context(), nodeID)
	if err != nil {
		s.writeShareError(w, err)
		return
	}
	if node == nil || node.OwnerID != claims.UserID {
		http.Error(w, "Node not found or you are not the owner", http.StatusNotFound)
		return
	}

	recursive := r.URL.Query().Get("recursive") == "true"
	currentAccess := r.URL.Query().Get("current_access") == "true"

	accessList, err := s.manager.GetAccessList(r.Context(), nodeID, recursive, currentAccess)
	if err != nil {
		s.writeShareError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(accessList)
}

// @Summary      Resolve a public share token
// @Tags         public
// @Produce      json
// @Param        token  path      string  true  "Share token"
// @Success      200    {object}  models.Share
// @Failure      404    {string}  string "Not Found"
// @Router       /public/shares/{token} [get]
func (s *Server) GetShareByTokenHandler(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	sh, err := s.manager.GetByToken(r.Context(), token)
	if err != nil {
		s.writeShareError(w, err)
		return
	}

	// The anonymous view never includes the password hash and only says
	// whether one is required.
	response := struct {
		*models.Share
		PasswordProtected bool `json:"password_protected"`
	}{Share: sh, PasswordProtected: sh.Password != nil}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

type CheckPasswordRequest struct {
	Password string `json:"password"`
}

// @Summary      Check a public share password
// @Tags         public
// @Accept       json
// @Param        token    path      string               true "Share token"
// @Param        request  body      CheckPasswordRequest true "Password candidate"
// @Success      204      {null}    nil "Password accepted"
// @Failure      403      {string}  string "Wrong password"
// @Router       /public/shares/{token}/auth [post]
func (s *Server) CheckSharePasswordHandler(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var req CheckPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sh, err := s.manager.GetByToken(r.Context(), token)
	if err != nil {
		s.writeShareError(w, err)
		return
	}

	ok, err := s.manager.CheckPassword(r.Context(), sh, req.Password)
	if err != nil {
		s.writeShareError(w, err)
		return
	}
	if !ok {
		http.Error(w, "Wrong password", http.StatusForbidden)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 100
	offset = 0

	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}
