package dummy

import (
	"fmt"
	"math/rand"
	"net/http"
	"time"
)

type ServerConfig struct {
	Port int
}

// Start runs a local target server with pages of known load characteristics,
// so the benchmark can be exercised without hitting the public internet.
func Start(cfg ServerConfig) {
	mux := http.NewServeMux()

	// 1. Fast page (10-50ms server time)
	mux.HandleFunc("/fast", func(w http.ResponseWriter, r *http.Request) {
		jitter := time.Duration(rand.Intn(40)+10) * time.Millisecond
		time.Sleep(jitter)
		writePage(w, "Fast Page", "")
	})

	// 2. Slow page (1s-2s) - good for watching the live dashboard
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		jitter := time.Duration(rand.Intn(1000)+1000) * time.Millisecond
		time.Sleep(jitter)
		writePage(w, "Slow Page", "")
	})

	// 3. Heavy page: fast HTML, but a subresource that delays the load event.
	// ReadyState and LoadEventEnd strategies diverge here.
	mux.HandleFunc("/heavy", func(w http.ResponseWriter, r *http.Request) {
		writePage(w, "Heavy Page", `<img src="/asset?delay=800">`)
	})

	mux.HandleFunc("/asset", func(w http.ResponseWriter, r *http.Request) {
		delay, _ := time.ParseDuration(r.URL.Query().Get("delay") + "ms")
		time.Sleep(delay)
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Write([]byte(`<svg xmlns="http://www.w3.org/2000/svg"/>`))
	})

	// 4. Flaky page (random failures) - good for testing error aggregation
	mux.HandleFunc("/flaky", func(w http.ResponseWriter, r *http.Request) {
		if rand.Float32() < 0.2 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("500 Internal Server Error"))
			return
		}
		writePage(w, "Flaky Page", "")
	})

	// 5. Hanging page - never finishes loading; exercises the timeout path.
	mux.HandleFunc("/hang", func(w http.ResponseWriter, r *http.Request) {
		writePage(w, "Hanging Page", `<img src="/asset?delay=600000">`)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	fmt.Printf("Target server running on http://localhost%s\n", addr)
	fmt.Println("   Pages: /fast, /slow, /heavy, /flaky, /hang")

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("Server failed: %v\n", err)
		}
	}()
}

func writePage(w http.ResponseWriter, title, extra string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html><head><title>%s</title></head>
<body><h1>%s</h1>%s</body></html>`, title, title, extra)
}
