package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
)

func TestProperty_ErrorResponsesHaveConsistentStructure(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("all error responses share one envelope", prop.ForAll(
		func(message string) bool {
			standardCodes := []int{
				http.StatusBadRequest,
				http.StatusNotFound,
				http.StatusTooManyRequests,
				http.StatusInternalServerError,
			}
			statusCode := standardCodes[len(message)%len(standardCodes)]

			if len(message) == 0 {
				message = "test error"
			}

			w := httptest.NewRecorder()
			RespondWithError(w, statusCode, message)

			if w.Code != statusCode {
				return false
			}
			if w.Header().Get("Content-Type") != "application/json" {
				return false
			}

			var response ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				return false
			}

			if response.Error.Code == "" {
				return false
			}
			if response.Error.Message != message {
				return false
			}
			if _, err := time.Parse(time.RFC3339, response.Error.Timestamp); err != nil {
				return false
			}

			return true
		},
		gen.AlphaString().SuchThat(func(s string) bool { return len(s) > 0 }),
	))

	properties.TestingRun(t)
}

func TestErrorHandlingMiddlewareRecoversPanics(t *testing.T) {
	logger := zap.NewNop()

	handler := ErrorHandlingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/items", nil)
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 after panic, got %d", w.Code)
	}

	var response ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("panic response is not JSON: %v", err)
	}
	if response.Error.Message != "internal server error" {
		t.Errorf("unexpected message %q", response.Error.Message)
	}
}

func TestRespondWithJSONSetsContentType(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Data updated"})

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("Content-Type") != "application/json" {
		t.Errorf("unexpected content type %q", w.Header().Get("Content-Type"))
	}
}
