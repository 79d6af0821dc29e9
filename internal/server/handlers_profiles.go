package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/veridate/veridate/internal/ids"
	"github.com/veridate/veridate/internal/ledger"
	"github.com/veridate/veridate/internal/types"
)

// handleGetProfile returns any user's profile.
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	if !ids.Valid(userID) {
		s.writeError(w, r, &types.ErrInvalidIdentifier{Field: "user id", Value: userID})
		return
	}
	s.writeProfile(w, r, strings.ToLower(userID))
}

// handleGetMyProfile returns the caller's profile.
func (s *Server) handleGetMyProfile(w http.ResponseWriter, r *http.Request) {
	callerID, ok := s.callerID(w, r)
	if !ok {
		return
	}
	s.writeProfile(w, r, callerID)
}

func (s *Server) writeProfile(w http.ResponseWriter, r *http.Request, userID string) {
	p, err := s.store.GetProfile(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if p == nil {
		s.writeError(w, r, &types.ErrNotFound{Resource: "profile", ID: userID})
		return
	}
	s.jsonResponse(w, http.StatusOK, p)
}

// handleUpsertProfile creates or updates the caller's personal info.
func (s *Server) handleUpsertProfile(w http.ResponseWriter, r *http.Request) {
	callerID, ok := s.callerID(w, r)
	if !ok {
		return
	}

	var req types.UpsertProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	req.FullName = strings.TrimSpace(req.FullName)
	req.Headline = strings.TrimSpace(req.Headline)
	if err := req.Validate(); err != nil {
		s.writeError(w, r, types.ValidationFailure(err))
		return
	}

	p, err := s.store.UpsertProfile(r.Context(), callerID, req.FullName, req.Headline)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, p)
}

// handleAddEducation appends an education item to the caller's profile.
func (s *Server) handleAddEducation(w http.ResponseWriter, r *http.Request) {
	callerID, ok := s.callerID(w, r)
	if !ok {
		return
	}

	var req types.AddEducationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	req.Institute = strings.TrimSpace(req.Institute)
	if err := req.Validate(); err != nil {
		s.writeError(w, r, types.ValidationFailure(err))
		return
	}
	if err := checkDateRange(req.StartDate, req.EndDate); err != nil {
		s.writeError(w, r, err)
		return
	}
	key := ledger.NormalizeKey(req.Institute)
	if key == "" {
		s.writeError(w, r, &types.ErrValidation{Field: "institute", Message: "must contain letters or digits"})
		return
	}

	item := &types.EducationItem{
		ID:            ids.New(),
		Institute:     req.Institute,
		InstituteKey:  key,
		Degree:        strings.TrimSpace(req.Degree),
		FieldOfStudy:  strings.TrimSpace(req.FieldOfStudy),
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		Verifications: []types.Verification{},
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.store.AddEducation(r.Context(), callerID, item); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, item)
}

// handleAddExperience appends an experience item to the caller's profile.
func (s *Server) handleAddExperience(w http.ResponseWriter, r *http.Request) {
	callerID, ok := s.callerID(w, r)
	if !ok {
		return
	}

	var req types.AddExperienceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	req.Company = strings.TrimSpace(req.Company)
	req.RoleTitle = strings.TrimSpace(req.RoleTitle)
	if err := req.Validate(); err != nil {
		s.writeError(w, r, types.ValidationFailure(err))
		return
	}
	if err := checkDateRange(req.StartDate, req.EndDate); err != nil {
		s.writeError(w, r, err)
		return
	}
	key := ledger.NormalizeKey(req.Company)
	if key == "" {
		s.writeError(w, r, &types.ErrValidation{Field: "company", Message: "must contain letters or digits"})
		return
	}

	item := &types.ExperienceItem{
		ID:            ids.New(),
		Company:       req.Company,
		CompanyKey:    key,
		RoleTitle:     req.RoleTitle,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		Verifications: []types.Verification{},
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.store.AddExperience(r.Context(), callerID, item); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, item)
}

// handleSetLineManager names the line manager of one of the caller's experience items and
// notifies the manager when the reference is new.
func (s *Server) handleSetLineManager(w http.ResponseWriter, r *http.Request) {
	callerID, ok := s.callerID(w, r)
	if !ok {
		return
	}
	expID := r.PathValue("expId")
	if !ids.Valid(expID) {
		s.writeError(w, r, &types.ErrInvalidIdentifier{Field: "experience id", Value: expID})
		return
	}
	expID = strings.ToLower(expID)

	var req types.SetLineManagerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, r, types.ValidationFailure(err))
		return
	}
	managerID := strings.ToLower(req.ManagerID)
	if managerID == callerID {
		s.writeError(w, r, &types.ErrValidation{Field: "managerId", Message: "you cannot be your own line manager"})
		return
	}

	owner, err := s.store.GetProfile(r.Context(), callerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if owner == nil {
		s.writeError(w, r, &types.ErrNotFound{Resource: "profile", ID: callerID})
		return
	}
	if owner.FindExperience(expID) == nil {
		s.writeError(w, r, &types.ErrNotFound{Resource: "experience", ID: expID})
		return
	}
	manager, err := s.store.GetProfile(r.Context(), managerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if manager == nil {
		s.writeError(w, r, &types.ErrNotFound{Resource: "line manager", ID: managerID})
		return
	}

	// The store reports the manager it replaced, so concurrent identical calls notify once.
	item, previous, err := s.store.SetLineManager(r.Context(), callerID, expID, managerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if previous != managerID {
		s.emitter.Emit(r.Context(), managerID, types.NotificationLineManagerAdded,
			fmt.Sprintf("%s added you as their line manager for %s at %s", owner.FullName, item.RoleTitle, item.Company),
			map[string]any{
				"profileUserId": callerID,
				"experienceId":  item.ID,
				"company":       item.Company,
			},
		)
	}
	s.jsonResponse(w, http.StatusOK, item)
}

func checkDateRange(start, end *types.Date) error {
	if start == nil || end == nil || start.IsZero() || end.IsZero() {
		return nil
	}
	if end.Before(start.Time) {
		return &types.ErrValidation{Field: "endDate", Message: "must not be before startDate"}
	}
	return nil
}
