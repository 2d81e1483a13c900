package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"p9e.in/hallfix/handlers"
	"p9e.in/hallfix/middleware"
)

// RegisterRoutes sets up all application routes
func RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	// =====================================================
	// Public Routes (no authentication)
	// =====================================================
	r.HandleFunc("/register", handlers.Register).Methods("POST")
	r.HandleFunc("/login", handlers.Login).Methods("POST")
	r.PathPrefix("/uploads/").Handler(
		http.StripPrefix("/uploads/", http.FileServer(http.Dir("./uploads"))),
	)

	// =====================================================
	// Protected API Routes (require JWT authentication)
	// =====================================================
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.JWTMiddleware)

	api.HandleFunc("/me", handlers.GetCurrentUser).Methods("GET")

	// Location structure for selection forms
	api.HandleFunc("/locations", handlers.GetLocationStructure).Methods("GET")
	api.HandleFunc("/locations/rooms", handlers.GetRoomsForLocation).Methods("GET")

	// Student surface
	api.HandleFunc("/reports", handlers.SubmitReport).Methods("POST")
	api.HandleFunc("/reports/mine", handlers.GetMyReports).Methods("GET")
	api.HandleFunc("/upload", handlers.UploadFileHandler).Methods("POST")

	// Maintenance surface
	api.HandleFunc("/technician/reports", handlers.GetTechnicianReports).Methods("GET")
	api.HandleFunc("/technician/worklist", handlers.GetTechnicianWorklist).Methods("GET")
	api.HandleFunc("/reports/toggle", handlers.ToggleReportStatus).Methods("POST")

	// =====================================================
	// Admin Routes (require admin permissions)
	// =====================================================
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireAdmin)

	admin.HandleFunc("/faults", handlers.GetFaultCatalog).Methods("GET")
	admin.HandleFunc("/faults", handlers.CreateFaultCategory).Methods("POST")
	admin.HandleFunc("/faults/{id}/icon", handlers.UpdateFaultIcon).Methods("PUT")
	admin.HandleFunc("/faults/{id}/reports", handlers.GetFaultReports).Methods("GET")
	admin.HandleFunc("/faults/{id}/analytics", handlers.GetFaultAnalytics).Methods("GET")

	admin.HandleFunc("/reports", handlers.GetReports).Methods("GET")
	admin.HandleFunc("/reports/resolve", handlers.BulkResolveReports).Methods("POST")
	admin.HandleFunc("/rooms/{room}/reopen", handlers.BulkReopenRoom).Methods("POST")
	admin.HandleFunc("/rooms", handlers.RegisterRoom).Methods("POST")

	admin.HandleFunc("/hall/stats", handlers.GetHallStats).Methods("GET")
	admin.HandleFunc("/hall/analytics", handlers.GetHallAnalytics).Methods("GET")

	admin.HandleFunc("/users", handlers.GetUsers).Methods("GET")
	admin.HandleFunc("/users/export", handlers.ExportUsersCSV).Methods("GET")
	admin.HandleFunc("/users/facets", handlers.GetUserFacets).Methods("GET")
	admin.HandleFunc("/users/grouped", handlers.GetUsersGrouped).Methods("GET")
	admin.HandleFunc("/users/approve", handlers.BulkApproveUsers).Methods("POST")
	admin.HandleFunc("/users/{id}/approve", handlers.ApproveUser).Methods("POST")

	admin.HandleFunc("/reports/export", handlers.ExportReportsExcel).Methods("GET")
	admin.HandleFunc("/notifications", handlers.GetNotifications).Methods("GET")
	admin.HandleFunc("/notifications/read", handlers.MarkNotificationsRead).Methods("POST")
	admin.HandleFunc("/activity", handlers.GetActivityLog).Methods("GET")

	// Destructive resets stay behind the elevated role
	super := admin.PathPrefix("/super").Subrouter()
	super.Use(middleware.RequireSuperAdmin)
	super.HandleFunc("/notifications/reset", handlers.ResetNotifications).Methods("POST")

	// =====================================================
	// Live dashboard stream
	// =====================================================
	r.HandleFunc("/ws/reports", handlers.ReportStreamWS)

	return r
}
