package handlers

import (
	"net/http"
	"os"
)

// Upload prefixes partition stored files by what the portal keeps:
// student report photos and admin-managed fault category icons.
const (
	uploadPrefixReportImages = "report-images"
	uploadPrefixFaultIcons   = "fault-icons"
)

// uploadPrefix picks the storage prefix from the request's kind field.
// Call after the multipart form has been parsed.
func uploadPrefix(r *http.Request) string {
	if r.FormValue("kind") == "fault-icon" {
		return uploadPrefixFaultIcons
	}
	return uploadPrefixReportImages
}

// UploadFileHandler routes uploads to cloud or local storage based on
// environment. Cloud Run sets K_SERVICE; explicit opt-in via USE_GCS.
func UploadFileHandler(w http.ResponseWriter, r *http.Request) {
	useGCS := os.Getenv("USE_GCS") == "true" ||
		os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "" ||
		os.Getenv("K_SERVICE") != ""

	if useGCS {
		UploadFileGCS(w, r)
	} else {
		UploadFileLocal(w, r)
	}
}
