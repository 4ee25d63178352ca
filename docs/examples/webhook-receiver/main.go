// Forkful Webhook Receiver Example
//
// This is a minimal example of how to receive and verify Forkful webhooks.
//
// Usage:
//   export FORKFUL_WEBHOOK_SECRET="<the secret shown when you created the webhook>"
//   go run main.go
//
// Then register http://your-server:9000/webhook as the webhook target.

package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"
)

// replayWindow is how far a delivery timestamp may drift before rejection.
const replayWindow = 5 * time.Minute

// RecipeEvent is the payload posted for recipe events. recipe.created and
// recipe.updated carry the full recipe summary; recipe.deleted carries
// only recipe_id.
type RecipeEvent struct {
	EventType string     `json:"event_type"`
	EventID   string     `json:"event_id"`
	Timestamp time.Time  `json:"timestamp"`
	Data      RecipeData `json:"data"`
}

type RecipeData struct {
	RecipeID      string   `json:"recipe_id"`
	Title         string   `json:"title"`
	TimeMinutes   int      `json:"time_minutes"`
	Price         string   `json:"price"`
	Link          string   `json:"link,omitempty"`
	TagIDs        []string `json:"tag_ids"`
	IngredientIDs []string `json:"ingredient_ids"`
}

func main() {
	secret := os.Getenv("FORKFUL_WEBHOOK_SECRET")
	if secret == "" {
		log.Fatal("FORKFUL_WEBHOOK_SECRET environment variable is required")
	}

	// Forkful signs with a key derived from the secret, not the secret
	// itself. Derive the same key once up front.
	keyHash := sha256.Sum256([]byte(secret))
	signingKey := hex.EncodeToString(keyHash[:])

	http.HandleFunc("/webhook", webhookHandler(signingKey))
	http.HandleFunc("/health", healthHandler)

	log.Println("Starting webhook receiver on :9000")
	log.Println("Endpoint: http://localhost:9000/webhook")
	log.Fatal(http.ListenAndServe(":9000", nil))
}

func webhookHandler(signingKey string) http.HandlerFunc {
	// Delivery is at-least-once; remember recent ids to drop replays
	var (
		mu   sync.Mutex
		seen = make(map[string]bool)
	)

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			log.Printf("Error reading body: %v", err)
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		signature := r.Header.Get("X-Forkful-Signature")
		timestamp := r.Header.Get("X-Forkful-Timestamp")
		deliveryID := r.Header.Get("X-Forkful-Delivery-Id")
		if signature == "" || timestamp == "" {
			log.Println("Missing signature headers")
			http.Error(w, "Missing signature", http.StatusUnauthorized)
			return
		}

		if !verifySignature(signingKey, signature, timestamp, body) {
			log.Println("Invalid signature")
			http.Error(w, "Invalid signature", http.StatusUnauthorized)
			return
		}

		mu.Lock()
		duplicate := seen[deliveryID]
		seen[deliveryID] = true
		mu.Unlock()
		if duplicate {
			// Already processed; acknowledge so Forkful stops retrying
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{"status": "duplicate"})
			return
		}

		var event RecipeEvent
		if err := json.Unmarshal(body, &event); err != nil {
			log.Printf("Error parsing JSON: %v", err)
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}

		// Process the event
		log.Printf("✓ Received %s event %s", event.EventType, event.EventID)
		log.Printf("  Delivery: %s", deliveryID)
		log.Printf("  Recipe:   %s", event.Data.RecipeID)
		if event.Data.Title != "" {
			log.Printf("  Title:    %s", event.Data.Title)
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "received"})
	}
}

// verifySignature checks the HMAC-SHA256 signature from Forkful.
//
// Signed string: {timestamp}.{body}
// Key: hex(SHA-256(secret))
func verifySignature(signingKey, signature, timestamp string, body []byte) bool {
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}

	drift := time.Now().Unix() - ts
	if drift < 0 {
		drift = -drift
	}
	if drift > int64(replayWindow.Seconds()) {
		log.Println("Signature timestamp outside replay window")
		return false
	}

	mac := hmac.New(sha256.New, []byte(signingKey))
	mac.Write([]byte(timestamp + "."))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	// Constant-time comparison
	return hmac.Equal([]byte(signature), []byte(expected))
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
