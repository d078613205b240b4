package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/priointimate/PrioBusiness/internal/realtime"
)

func TestStreamPushesSnapshotPerEvent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	broker := realtime.NewMemoryBroker()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub, errSub := broker.Subscribe(ctx, realtime.TopicPayments)
	if errSub != nil {
		t.Fatalf("subscribe: %v", errSub)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/stream", nil).WithContext(ctx)

	calls := make(chan int, 4)
	count := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		Stream(c, sub, func(context.Context) (any, error) {
			count++
			calls <- count
			return gin.H{"n": count}, nil
		})
	}()

	waitCall(t, calls, 1)
	if errPublish := broker.Publish(ctx, realtime.Event{Topic: realtime.TopicPayments, Type: "created", ID: 7}); errPublish != nil {
		t.Fatalf("publish: %v", errPublish)
	}
	waitCall(t, calls, 2)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("stream did not stop after cancel")
	}
	select {
	case <-sub.Done():
	default:
		t.Fatalf("subscription not closed")
	}
	body := w.Body.String()
	if got := strings.Count(body, "event:snapshot"); got != 2 {
		t.Fatalf("snapshot events = %d, body %q", got, body)
	}
}

func waitCall(t *testing.T, calls <-chan int, want int) {
	t.Helper()
	select {
	case got := <-calls:
		if got != want {
			t.Fatalf("snapshot call = %d, want %d", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for snapshot %d", want)
	}
}
