package handlers

import (
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"p9e.in/hallfix/config"
	"p9e.in/hallfix/middleware"
	"p9e.in/hallfix/models"
)

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`

	// Student fields
	StudentID    string `json:"studentId"`
	Program      string `json:"program"`
	Block        string `json:"block"`
	LocationText string `json:"locationText"`
	Room         string `json:"room"`

	// Staff / maintenance fields
	StaffRank string `json:"staffRank"`
	Specialty string `json:"specialty"`
}

// Register creates a user document awaiting admin approval. New accounts
// can sign in but see only the pending-approval screen until approved.
func Register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := decodeJSONBody(r, &req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" || req.Name == "" {
		http.Error(w, "name, email and password are required", http.StatusBadRequest)
		return
	}
	if _, exists := findUserByEmail(req.Email); exists {
		http.Error(w, "email already registered", http.StatusConflict)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "error hashing password", http.StatusInternalServerError)
		return
	}

	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = models.RoleStudent
	}
	fields := models.JSONMap{
		"name":         req.Name,
		"email":        req.Email,
		"passwordHash": string(hash),
		"role":         role,
		"approved":     false,
		"createdAt":    time.Now().UTC().Format(time.RFC3339Nano),
	}
	if req.StudentID != "" {
		fields["studentId"] = req.StudentID
	}
	if req.Program != "" {
		fields["program"] = req.Program
	}
	if req.Block != "" {
		fields["area"] = req.Block
	}
	if req.LocationText != "" {
		fields["locationText"] = req.LocationText
	}
	if req.Room != "" {
		fields["room"] = models.NormalizeRoomName(req.Room)
	}
	if req.StaffRank != "" {
		fields["staffRank"] = req.StaffRank
	}
	if req.Specialty != "" {
		fields["specialty"] = strings.ToLower(req.Specialty)
	}

	doc, err := Docs.CreateDoc(r.Context(), "users", fields)
	if err != nil {
		config.Log.WithError(err).Error("registration failed")
		http.Error(w, "failed to create account", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": doc.ID})
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResp struct {
	Token   string               `json:"token"`
	User    models.DirectoryUser `json:"user"`
	Pending bool                 `json:"pending"`
}

// findUserByEmail scans the directory cache; the directory is small enough
// that an index is not worth its upkeep.
func findUserByEmail(email string) (models.DirectoryUser, bool) {
	for _, u := range Directory.Users() {
		if strings.EqualFold(u.Email, email) {
			return u, true
		}
	}
	return models.DirectoryUser{}, false
}

// Login verifies credentials against the user document and issues a JWT.
// Unapproved accounts still get a token; the response flags them pending so
// the client routes to the waiting screen.
func Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := decodeJSONBody(r, &req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	user, ok := findUserByEmail(strings.TrimSpace(req.Email))
	if !ok {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	hash := user.Raw.FieldString("passwordHash")
	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := middleware.GenerateStaffToken(
		user.ID, user.Role, user.Name, user.Email,
		user.StaffRank, user.Raw.FieldString("specialty"),
	)
	if err != nil {
		http.Error(w, "couldn't create token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, loginResp{
		Token:   token,
		User:    user,
		Pending: models.IsPendingApproval(user.Raw),
	})
}

// GetCurrentUser returns the caller's directory row.
func GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)
	if claims == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	user, ok := Directory.UserByID(claims.UserID)
	if !ok {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
