package server

import (
	"net/http"
	"strings"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if err := s.app.Register(r.Context(), req.Name, req.Email, req.Password); err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{
		Message: "registration started, check your email for the verification code",
	})
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req otpVerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if strings.EqualFold(req.Purpose, "forgot_password") {
		s.verifyResetOTP(w, r, req)
		return
	}
	result, err := s.app.VerifySignupOTP(r.Context(), req.Email, req.OTPCode)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, otpVerifyResponse{
		Message:  "email verified",
		Verified: true,
		Token:    result.Token,
	})
}

func (s *Server) handleVerifyResetOTP(w http.ResponseWriter, r *http.Request) {
	var req otpVerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	s.verifyResetOTP(w, r, req)
}

func (s *Server) verifyResetOTP(w http.ResponseWriter, r *http.Request, req otpVerifyRequest) {
	resetToken, err := s.app.VerifyResetOTP(r.Context(), req.Email, req.OTPCode)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, otpVerifyResponse{
		Message:    "code verified",
		Verified:   true,
		ResetToken: resetToken,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	result, err := s.app.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: result.Token,
		TokenType:   "bearer",
		UserID:      result.User.ID,
		Email:       result.User.Email,
		Name:        result.User.Name,
		IsAdmin:     result.User.IsAdmin,
	})
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if err := s.app.ForgotPassword(r.Context(), req.Email); err != nil {
		s.writeAppError(w, err)
		return
	}
	// Same answer whether or not the account exists.
	writeJSON(w, http.StatusOK, messageResponse{
		Message: "if the account exists, a reset code has been sent",
	})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	err := s.app.ResetPassword(r.Context(), req.Email, req.NewPassword, req.ConfirmPassword, req.ResetToken)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "password updated, please log in again"})
}
