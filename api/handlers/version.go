package handlers

import (
	"encoding/json"
	"net/http"
)

// VersionResponse describes the running build.
type VersionResponse struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// buildInfo holds the ldflags values stamped into the binary. The defaults
// cover uninstrumented builds during development.
var buildInfo = VersionResponse{
	Version: "dev",
	Commit:  "none",
	Date:    "unknown",
}

// SetBuildInfo records the build metadata injected from main at startup.
func SetBuildInfo(version, commit, date string) {
	buildInfo = VersionResponse{Version: version, Commit: commit, Date: date}
}

// GetVersion reports the running build to cabinet clients.
func GetVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(buildInfo)
}
