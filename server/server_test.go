package server

import (
	"net/http/httptest"
	"testing"
)

var routeTests = []struct {
	method  string
	path    string
	pattern string
}{
	{"GET", "/feeds/trending", "GET /feeds/{name}"},
	{"POST", "/posts", "POST /posts"},
	{"PUT", "/posts/abc/reaction", "PUT /posts/{id}/reaction"},
	{"POST", "/posts/abc/comments", "POST /posts/{id}/comments"},
	{"POST", "/comments/abc/like", "POST /comments/{id}/like"},
	{"POST", "/stories/abc/view", "POST /stories/{id}/view"},
	{"POST", "/conversations/abc/read", "POST /conversations/{id}/read"},
	{"GET", "/notifications", "GET /notifications"},
	{"PUT", "/follows/u2", "PUT /follows/{id}"},
	{"POST", "/push/subscriptions", "POST /push/subscriptions"},
	{"GET", "/ws", "GET /ws"},
	{"GET", "/metrics", "GET /metrics"},
}

func TestRoutes(t *testing.T) {
	s := Server{}
	mux := s.routes()

	for _, tt := range routeTests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			_, pattern := mux.Handler(req)
			if pattern != tt.pattern {
				t.Errorf("got pattern %q, want %q", pattern, tt.pattern)
			}
		})
	}
}
