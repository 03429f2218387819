package api

import (
	"errors"
	"net/http"

	"github.com/awgman/awgman/pkg/httputil"
	"github.com/awgman/awgman/pkg/ipam"
	"github.com/awgman/awgman/pkg/observability"
	"github.com/awgman/awgman/pkg/provision"
	"github.com/awgman/awgman/pkg/store"
	"github.com/awgman/awgman/pkg/wgcli"
)

// health handles GET /health
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, map[string]string{"status": "ok"})
}

// createUser handles POST /api/users
func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.UserID, "user_id") {
		return
	}

	user, config, err := s.manager.CreateUser(r.Context(), req.UserID, req.Name)
	if err != nil {
		s.writeManagerError(w, r, err)
		return
	}

	httputil.WriteCreated(w, UserResponse{Success: true, User: userPayload(user, config)})
}

// getUser handles GET /api/users/{id}
func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	user, config, found := s.manager.GetUser(r.Context(), id)
	if !found {
		httputil.WriteNotFound(w, "user not found")
		return
	}

	httputil.WriteSuccess(w, UserResponse{Success: true, User: userPayload(user, config)})
}

// deleteUser handles DELETE /api/users/{id}
func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	if err := s.manager.DeleteUser(r.Context(), id); err != nil {
		s.writeManagerError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, DeleteUserResponse{Success: true, Message: "user " + id + " deleted"})
}

// listUsers handles GET /api/users
func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users := s.manager.ListUsers(r.Context())
	httputil.WriteSuccess(w, ListUsersResponse{Success: true, Users: users, Total: len(users)})
}

// serverStatus handles GET /api/server/status. Status is advisory, so this
// endpoint answers 200 even when the interface controller is failing; the
// degradation is carried in the payload.
func (s *Server) serverStatus(w http.ResponseWriter, r *http.Request) {
	status := s.manager.ServerStatus(r.Context())
	httputil.WriteSuccess(w, StatusResponse{Success: true, Status: status})
}

// writeManagerError maps the lifecycle manager's error taxonomy onto HTTP
// statuses. Peer command detail (tool stderr) is logged, never echoed to
// the caller.
func (s *Server) writeManagerError(w http.ResponseWriter, r *http.Request, err error) {
	logger := observability.FromContext(r.Context()).WithError(err)

	switch {
	case errors.Is(err, provision.ErrInvalidUserID):
		httputil.WriteBadRequest(w, err.Error())
	case errors.Is(err, provision.ErrDuplicateUser):
		httputil.WriteConflict(w, err.Error())
	case errors.Is(err, provision.ErrUserNotFound):
		httputil.WriteNotFound(w, err.Error())
	case errors.Is(err, ipam.ErrPoolExhausted):
		logger.Warn("address pool exhausted")
		httputil.WriteConflict(w, "address pool exhausted")
	case errors.Is(err, wgcli.ErrPeerCommand):
		logger.Error("peer command failed")
		httputil.WriteBadGateway(w, "failed to configure peer on interface")
	case errors.Is(err, store.ErrStorage):
		logger.Error("user store write failed")
		httputil.WriteInternalError(w)
	default:
		logger.Error("unclassified provisioning error")
		httputil.WriteInternalError(w)
	}
}

func userPayload(user store.User, config string) UserPayload {
	return UserPayload{
		ID:           user.ID,
		Name:         user.Name,
		IP:           user.IP,
		PublicKey:    user.PublicKey,
		ClientConfig: config,
	}
}
