package api

import (
	"log/slog"
	"net/http"

	"github.com/MindAthlete/backend/internal/models"
)

// profileHandler handles GET and PUT /api/profile.
func (s *Server) profileHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.getProfileHandler(w, r)
	case http.MethodPut:
		s.updateProfileHandler(w, r)
	default:
		methodNotAllowed(w, "GET, PUT")
	}
}

func (s *Server) getProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID := caller(r).UserID
	profile, err := s.st.GetUserProfile(userID)
	if err != nil {
		slog.Error("Server.getProfileHandler: profile lookup failed", "error", err, "user_id", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch profile"))
		return
	}
	if profile == nil {
		// First call for a new user: return an empty profile instead of 404
		// so the client can render the onboarding flow.
		profile = &models.UserProfile{UserID: userID, Email: caller(r).Email}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(profile))
}

func (s *Server) updateProfileHandler(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	userID := caller(r).UserID

	profile, err := s.st.GetUserProfile(userID)
	if err != nil {
		slog.Error("Server.updateProfileHandler: profile lookup failed", "error", err, "user_id", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch profile"))
		return
	}
	now := s.now().UTC()
	if profile == nil {
		profile = &models.UserProfile{UserID: userID, Email: caller(r).Email, CreatedAt: now}
	}
	req.Apply(profile)
	profile.UpdatedAt = now

	if err := s.st.SaveUserProfile(*profile); err != nil {
		slog.Error("Server.updateProfileHandler: save failed", "error", err, "user_id", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save profile"))
		return
	}
	slog.Info("Server.updateProfileHandler: profile saved", "user_id", userID)
	writeJSONResponse(w, http.StatusOK, models.Success(profile))
}

// questionnaireHandler handles POST /api/profile/questionnaire: the
// onboarding answers are stored raw and the structured fields are lifted
// onto the profile.
func (s *Server) questionnaireHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	var req models.QuestionnaireRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("sport, level and main_goal are required"))
		return
	}
	userID := caller(r).UserID

	profile, err := s.st.GetUserProfile(userID)
	if err != nil {
		slog.Error("Server.questionnaireHandler: profile lookup failed", "error", err, "user_id", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch profile"))
		return
	}
	now := s.now().UTC()
	if profile == nil {
		profile = &models.UserProfile{UserID: userID, Email: caller(r).Email, CreatedAt: now}
	}

	profile.Sport = req.Sport
	profile.Level = req.Level
	profile.Goals = []string{req.MainGoal}
	profile.TrainingFrequency = req.TrainingFrequency
	if len(req.StressFactors) > 0 {
		profile.StressFactors = req.StressFactors
	}
	profile.QuestionnaireData = req.AsMap()
	profile.QuestionnaireCompletedAt = &now
	profile.UpdatedAt = now

	if err := s.st.SaveUserProfile(*profile); err != nil {
		slog.Error("Server.questionnaireHandler: save failed", "error", err, "user_id", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save questionnaire"))
		return
	}
	slog.Info("Server.questionnaireHandler: questionnaire stored", "user_id", userID, "sport", req.Sport)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Questionnaire completed", profile))
}
