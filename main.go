package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"p9e.in/hallfix/config"
	"p9e.in/hallfix/handlers"
	"p9e.in/hallfix/pkg/docstore"
	"p9e.in/hallfix/routes"
)

var (
	Version   = "dev"
	BuildTime = ""
)

func main() {
	versionFlag := flag.Bool("version", false, "Print version info and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("Version:   %s\n", Version)
		fmt.Printf("BuildTime: %s\n", BuildTime)
		os.Exit(0)
	}

	config.Connect()
	config.Migrate()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	store := docstore.NewGormStore(config.DB, 2*time.Second)
	defer store.Close()

	handlers.Setup(store)
	defer handlers.Shutdown()

	handler := enableCORS(routes.RegisterRoutes())
	config.Log.Infof("Server starting at port %s", port)
	config.Log.Fatal(http.ListenAndServe(":"+port, handler))
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
