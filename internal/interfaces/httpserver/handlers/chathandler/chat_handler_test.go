package chathandler

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestSSESink_SendRawWritesMetadataRecord(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	reqCtx, _ := gin.CreateTestContext(w)

	sink := newSSESink(reqCtx, w, "gemini-2.5-flash")
	sink.sendRaw(map[string]any{
		"conversation": map[string]string{"id": "conv_abc123", "title": "Hello"},
	})

	body := w.Body.String()
	if !strings.HasPrefix(body, "data: ") || !strings.HasSuffix(body, "\n\n") {
		t.Fatalf("record framing = %q", body)
	}
	if !strings.Contains(body, `"conversation"`) || !strings.Contains(body, "conv_abc123") {
		t.Errorf("record payload = %q", body)
	}
	if !sink.wrote() {
		t.Error("sink did not mark the write")
	}
}
