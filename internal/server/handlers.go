/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/panteparak/console-broker/pkg/awssign"
	"github.com/panteparak/console-broker/pkg/logger"
	"github.com/panteparak/console-broker/pkg/secrets"
	infraerrors "github.com/panteparak/console-broker/shared/infrastructure/errors"
)

// StatusResponse is returned by the probes.
type StatusResponse struct {
	Status string `json:"status"`
}

// ErrorResponse describes a failed call. Stage is set for signing failures.
type ErrorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

// SecretResponse is returned by the secret endpoint.
type SecretResponse struct {
	AppID string `json:"appId"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ResolveConfigRequest carries an application's stored config values and,
// optionally, the raw values a user submitted for some of them.
type ResolveConfigRequest struct {
	Values map[string]secrets.ConfigValue `json:"values"`
	Edits  map[string]string              `json:"edits,omitempty"`
}

// ResolveConfigResponse returns the values to store after the edits and the
// resolved plaintext the application receives.
type ResolveConfigResponse struct {
	AppID    string                         `json:"appId"`
	Values   map[string]secrets.ConfigValue `json:"values"`
	Resolved map[string]string              `json:"resolved"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.session == nil || !s.session.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, StatusResponse{Status: "no valid session"})
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (s *Server) handleSign(w http.ResponseWriter, r *http.Request) {
	var req awssign.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if req.AppID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "appId is required"})
		return
	}

	signed, err := s.signer.Sign(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, signed)
}

func (s *Server) handleGetSecret(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appID, key := vars["appID"], vars["key"]

	value, found, err := s.secrets.GetAppSecret(r.Context(), appID, key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "secret not found"})
		return
	}
	writeJSON(w, http.StatusOK, SecretResponse{AppID: appID, Key: key, Value: value})
}

func (s *Server) handleResolveConfig(w http.ResponseWriter, r *http.Request) {
	appID := mux.Vars(r)["appID"]

	var req ResolveConfigRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	values := make(map[string]secrets.ConfigValue, len(req.Values)+len(req.Edits))
	for name, v := range req.Values {
		values[name] = v
	}
	for name, submitted := range req.Edits {
		edited, err := secrets.ApplyEdit(values[name], submitted)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		values[name] = edited
	}

	resolved, err := s.secrets.ResolveValues(r.Context(), appID, values)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ResolveConfigResponse{AppID: appID, Values: values, Resolved: resolved})
}

// writeError maps the error taxonomy onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error(err, "request failed", "status", status)
	} else {
		log.V(1).Info("request rejected", "status", status, logger.KeyError, err.Error())
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Stage: infraerrors.StageOf(err)})
}

func statusFor(err error) int {
	switch {
	case infraerrors.IsValidationError(err), infraerrors.IsSigningInputError(err):
		return http.StatusBadRequest
	case infraerrors.IsCredentialsUnavailableError(err), infraerrors.IsMissingFieldError(err):
		return http.StatusUnprocessableEntity
	case infraerrors.IsRoleAssumptionError(err),
		infraerrors.IsStoreUnavailableError(err),
		infraerrors.IsPermissionDeniedError(err):
		return http.StatusBadGateway
	case infraerrors.IsAuthenticationError(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
