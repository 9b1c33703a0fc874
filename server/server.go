package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"campusfeed/feeds"
	"campusfeed/feeds/algorithms"
	"campusfeed/monitoring/middleware"
	"campusfeed/push"
	"campusfeed/realtime"
	"campusfeed/storage"
	"campusfeed/storage/models"
	"campusfeed/utils"
)

type Server struct {
	store *storage.Manager
	feeds map[string]*feeds.Feed
	hub   *realtime.Hub
	push  *push.Sender
}

func NewServer(store *storage.Manager, hub *realtime.Hub, pushSender *push.Sender) Server {
	serverFeeds := map[string]*feeds.Feed{
		"personalized":           feeds.NewFeed("personalized", store, algorithms.Personalized),
		storage.TrendingFeedName: feeds.NewFeed(storage.TrendingFeedName, store, algorithms.Trending),
	}

	return Server{
		store: store,
		feeds: serverFeeds,
		hub:   hub,
		push:  pushSender,
	}
}

func (s *Server) GetFeeds() []*feeds.Feed {
	result := make([]*feeds.Feed, 0, len(s.feeds))
	for _, feed := range s.feeds {
		result = append(result, feed)
	}
	return result
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /feeds/{name}", s.getFeed)

	mux.HandleFunc("POST /posts", s.createPost)
	mux.HandleFunc("GET /posts/{id}", s.getPost)
	mux.HandleFunc("PUT /posts/{id}/reaction", s.setReaction)
	mux.HandleFunc("GET /posts/{id}/comments", s.listComments)
	mux.HandleFunc("POST /posts/{id}/comments", s.createComment)
	mux.HandleFunc("POST /comments/{id}/like", s.likeComment)
	mux.HandleFunc("POST /posts/{id}/save", s.savePost)
	mux.HandleFunc("DELETE /posts/{id}/save", s.unsavePost)
	mux.HandleFunc("POST /posts/{id}/share", s.sharePost)
	mux.HandleFunc("POST /posts/{id}/view", s.viewPost)

	mux.HandleFunc("GET /stories", s.listStories)
	mux.HandleFunc("POST /stories", s.createStory)
	mux.HandleFunc("POST /stories/{id}/view", s.viewStory)

	mux.HandleFunc("GET /conversations", s.listConversations)
	mux.HandleFunc("POST /conversations", s.createConversation)
	mux.HandleFunc("GET /conversations/{id}/messages", s.listMessages)
	mux.HandleFunc("POST /conversations/{id}/messages", s.sendMessage)
	mux.HandleFunc("POST /conversations/{id}/read", s.markRead)
	mux.HandleFunc("GET /conversations/{id}/unread", s.getUnreadCount)

	mux.HandleFunc("GET /notifications", s.listNotifications)
	mux.HandleFunc("POST /notifications/{id}/read", s.markNotificationRead)

	mux.HandleFunc("PUT /follows/{id}", s.createFollow)
	mux.HandleFunc("DELETE /follows/{id}", s.deleteFollow)

	mux.HandleFunc("GET /push/key", s.getPushKey)
	mux.HandleFunc("POST /push/subscriptions", s.subscribePush)
	mux.HandleFunc("DELETE /push/subscriptions", s.unsubscribePush)

	mux.HandleFunc("GET /ws", s.serveWebsocket)
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

func (s *Server) Run() {
	mux := s.routes()

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}

	err := http.ListenAndServe(":"+port, middleware.NewServerMiddleware(mux))
	if errors.Is(err, http.ErrServerClosed) {
		fmt.Printf("server closed\n")
	} else if err != nil {
		fmt.Printf("error starting server: %s\n", err)
		os.Exit(1)
	}
}

// requireUser resolves the caller's identity. Authentication itself lives at
// the campus gateway; we trust its forwarded header.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) string {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		sendError(w, http.StatusUnauthorized, "missing X-User-Id header")
	}
	return userID
}

func (s *Server) getFeed(w http.ResponseWriter, r *http.Request) {
	userID := s.requireUser(w, r)
	if userID == "" {
		return
	}

	feedName := r.PathValue("name")
	requestedFeed := s.feeds[feedName]
	if requestedFeed == nil {
		sendError(w, http.StatusNotFound, "feed not found")
		return
	}

	queryParams := r.URL.Query()
	limit := int64(feeds.DefaultPageSize)
	if limitStr := getQueryItem(queryParams, "limit"); *limitStr != "" {
		limit = int64(utils.IntFromString(*limitStr, feeds.DefaultPageSize))
	}

	result, err := requestedFeed.GetPage(r.Context(), feeds.QueryParams{
		ViewerID:     userID,
		CampusID:     *getQueryItem(queryParams, "campus_id"),
		DepartmentID: *getQueryItem(queryParams, "department_id"),
		Limit:        limit,
		Cursor:       *getQueryItem(queryParams, "cursor"),
	})
	if err != nil {
		sendStoreError(w, err)
		return
	}
	sendJson(w, result)
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	userID := s.requireUser(w, r)
	if userID == "" {
		return
	}

	var body struct {
		Content      string            `json:"content"`
		Media        []models.MediaRef `json:"media"`
		Visibility   string            `json:"visibility"`
		CampusID     string            `json:"campus_id"`
		DepartmentID string            `json:"department_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		sendError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	post, err := s.store.CreatePost(r.Context(), storage.PostInput{
		AuthorID:     userID,
		Content:      body.Content,
		Media:        body.Media,
		Visibility:   models.Visibility(body.Visibility),
		CampusID:     body.CampusID,
		DepartmentID: body.DepartmentID,
	})
	if err != nil {
		sendStoreError(w, err)
		return
	}

	if err := s.store.NotifyMentions(r.Context(), userID, post.ID, post.Content); err != nil {
		log.Errorf("Error notifying mentions: %v", err)
	}

	w.WriteHeader(http.StatusCreated)
	sendJson(w, post)
}

func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.store.GetPost(r.Context(), r.PathValue("id"))
	if err != nil {
		sendStoreError(w, err)
		return
	}
	sendJson(w, post)
}

func (s *Server) setReaction(w http.ResponseWriter, r *http.Request) {
	userID := s.requireUser(w, r)
	if userID == "" {
		return
	}

	var body struct {
		Kind string `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		sendError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	postID := r.PathValue("id")
	result, err := s.store.SetReaction(r.Context(), postID, userID, models.ReactionKind(body.Kind))
	if err != nil {
		sendStoreError(w, err)
		return
	}

	if result.State != models.ReactionNone {
		s.notifyPostOwner(r, models.NotificationReacted, userID, postID, string(result.State))
	}
	sendJson(w, result)
}

func (s *Server) listComments(w http.ResponseWriter, r *http.Request) {
	queryParams := r.URL.Query()
	offset := int64(utils.IntFromString(*getQueryItem(queryParams, "offset"), 0))
	limit := int64(utils.IntFromString(*getQueryItem(queryParams, "limit"), 50))

	comments, err := s.store.ListComments(r.Context(), r.PathValue("id"), offset, limit)
	if err != nil {
		sendStoreError(w, err)
		return
	}
	sendJson(w, map[string]any{"comments": comments})
}

func (s *Server) createComment(w http.ResponseWriter, r *http.Request) {
	userID := s.requireUser(w, r)
	if userID == "" {
		return
	}

	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		sendError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	postID := r.PathValue("id")
	comment, err := s.store.CreateComment(r.Context(), postID, userID, body.Content)
	if err != nil {
		sendStoreError(w, err)
		return
	}

	s.notifyPostOwner(r, models.NotificationCommented, userID, postID, comment.Content)
	if err := s.store.NotifyMentions(r.Context(), userID, comment.PostID, comment.Content); err != nil {
		log.Errorf("Error notifying mentions: %v", err)
	}

	w.WriteHeader(http.StatusCreated)
	sendJson(w, comment)
}

func (s *Server) likeComment(w http.ResponseWriter, r *http.Request) {
	userID := s.requireUser(w, r)
	if userID == "" {
		return
	}
	if err := s.store.LikeComment(r.Context(), r.PathValue("id")); err != nil {
		sendStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) savePost(w http.ResponseWriter, r *http.Request) {
	userID := s.requireUser(w, r)
	if userID == "" {
		return
	}
	if err := s.store.SavePost(r.Context(), r.PathValue("id"), userID); err != nil {
		sendStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) unsavePost(w http.ResponseWriter, r *http.Request) {
	userID := s.requireUser(w, r)
	if userID == "" {
		return
	}
	if err := s.store.UnsavePost(r.Context(), r.PathValue("id"), userID); err != nil {
		sendStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) sharePost(w http.ResponseWriter, r *http.Request) {
	if err := s.store.RecordShare(r.Context(), r.PathValue("id")); err != nil {
		sendStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) viewPost(w http.ResponseWriter, r *http.Request) {
	if err := s.store.RecordPostView(r.Context(), r.PathValue("id")); err != nil {
		sendStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listStories(w http.ResponseWriter, r *http.Request) {
	userID := s.requireUser(w, r)
	if userID == "" {
		return
	}

	queryParams := r.URL.Query()
	limit := int64(utils.IntFromString(*getQueryItem(queryParams, "limit"), 100))

	stories, err := s.store.ListActiveStories(r.Context(), userID, *getQueryItem(queryParams, "campus_id"), limit)
	if err != nil {
		sendStoreError(w, err)
		return
	}
	sendJson(w, map[string]any{"stories": stories})
}

func (s *Server) createStory(w http.ResponseWriter, r *http.Request) {
	userID := s.requireUser(w, r)
	if userID == "" {
		return
	}

	var body struct {
		Media    models.MediaRef `json:"media"`
		Caption  string          `json:"caption"`
		CampusID string          `json:"campus_id"`
		TTLHours int             `json:"ttl_hours"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		sendError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	story, err := s.store.CreateStory(
		r.Context(), userID, body.Media, body.Caption, body.CampusID,
		time.Duration(body.TTLHours)*time.Hour,
	)
	if err != nil {
		sendStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	sendJson(w, story)
}

func (s *Server) viewStory(w http.ResponseWriter, r *http.Request) {
	userID := s.requireUser(w, r)
	if userID == "" {
		return
	}

	firstView, err := s.store.RecordStoryView(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		sendStoreError(w, err)
		return
	}
	sendJson(w, map[string]bool{"first_view": firstView})
}

func (s *Server) listConversations(w http.ResponseWriter, r *http.Request) {
	userID := s.requireUser(w, r)
	if userID == "" {
		return
	}

	conversations, err := s.store.ListConversations(r.Context(), userID)
	if err != nil {
		sendStoreError(w, err)
		return
	}
	sendJson(w, map[string]any{"conversations": conversations})
}

func (s *Server) createConversation(w http.ResponseWriter, r *http.Request) {
	userID := s.requireUser(w, r)
	if userID == "" {
		return
	}

	var body struct {
		Type           string   `json:"type"`
		Name           string   `json:"name"`
		ParticipantIDs []string `json:"participant_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		sendError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	participants := body.ParticipantIDs
	if !contains(participants, userID) {
		participants = append(participants, userID)
	}

	conversation, err := s.store.CreateConversation(
		r.Context(), models.ConversationType(body.Type), body.Name, participants,
	)
	if err != nil {
		sendStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	sendJson(w, conversation)
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	userID := s.requireUser(w, r)
	if userID == "" {
		return
	}

	queryParams := r.URL.Query()
	offset := int64(utils.IntFromString(*getQueryItem(queryParams, "offset"), 0))
	limit := int64(utils.IntFromString(*getQueryItem(queryParams, "limit"), 50))

	messages, err := s.store.ListMessages(r.Context(), r.PathValue("id"), userID, offset, limit)
	if err != nil {
		sendStoreError(w, err)
		return
	}
	sendJson(w, map[string]any{"messages": messages})
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	userID := s.requireUser(w, r)
	if userID == "" {
		return
	}

	var body struct {
		Content string            `json:"content"`
		Media   []models.MediaRef `json:"media"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		sendError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	message, err := s.store.SendMessage(r.Context(), r.PathValue("id"), userID, body.Content, body.Media)
	if err != nil {
		sendStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	sendJson(w, message)
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	userID := s.requireUser(w, r)
	if userID == "" {
		return
	}
	if err := s.store.MarkRead(r.Context(), r.PathValue("id"), userID); err != nil {
		sendStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getUnreadCount(w http.ResponseWriter, r *http.Request) {
	userID := s.requireUser(w, r)
	if userID == "" {
		return
	}
	count, err := s.store.UnreadCount(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		sendStoreError(w, err)
		return
	}
	sendJson(w, map[string]int64{"unread_count": count})
}

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	userID := s.requireUser(w, r)
	if userID == "" {
		return
	}

	queryParams := r.URL.Query()
	offset := int64(utils.IntFromString(*getQueryItem(queryParams, "offset"), 0))
	limit := int64(utils.IntFromString(*getQueryItem(queryParams, "limit"), 50))

	notifications, err := s.store.ListNotifications(r.Context(), userID, offset, limit)
	if err != nil {
		sendStoreError(w, err)
		return
	}
	sendJson(w, map[string]any{"notifications": notifications})
}

func (s *Server) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	userID := s.requireUser(w, r)
	if userID == "" {
		return
	}
	if err := s.store.MarkNotificationRead(r.Context(), r.PathValue("id"), userID); err != nil {
		sendStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) createFollow(w http.ResponseWriter, r *http.Request) {
	userID := s.requireUser(w, r)
	if userID == "" {
		return
	}

	subjectID := r.PathValue("id")
	if err := s.store.CreateFollow(r.Context(), userID, subjectID); err != nil {
		sendStoreError(w, err)
		return
	}

	_, _, err := s.store.Notify(r.Context(), models.Event{
		Kind:    models.NotificationFollowed,
		ActorID: userID,
		OwnerID: subjectID,
	})
	if err != nil {
		log.Errorf("Error creating follow notification: %v", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteFollow(w http.ResponseWriter, r *http.Request) {
	userID := s.requireUser(w, r)
	if userID == "" {
		return
	}
	if err := s.store.DeleteFollow(r.Context(), userID, r.PathValue("id")); err != nil {
		sendStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getPushKey(w http.ResponseWriter, r *http.Request) {
	sendJson(w, map[string]string{"public_key": s.push.PublicKey()})
}

func (s *Server) subscribePush(w http.ResponseWriter, r *http.Request) {
	userID := s.requireUser(w, r)
	if userID == "" {
		return
	}

	var body struct {
		Endpoint string `json:"endpoint"`
		P256dh   string `json:"p256dh"`
		Auth     string `json:"auth"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		sendError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	err := s.store.SavePushSubscription(r.Context(), models.PushSubscription{
		UserID:   userID,
		Endpoint: body.Endpoint,
		P256dh:   body.P256dh,
		Auth:     body.Auth,
	})
	if err != nil {
		sendStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) unsubscribePush(w http.ResponseWriter, r *http.Request) {
	userID := s.requireUser(w, r)
	if userID == "" {
		return
	}

	var body struct {
		Endpoint string `json:"endpoint"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		sendError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if err := s.store.DeletePushSubscription(r.Context(), userID, body.Endpoint); err != nil {
		sendStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	userID := s.requireUser(w, r)
	if userID == "" {
		return
	}
	s.hub.ServeWS(w, r, userID)
}

// notifyPostOwner records a fan-out event against the post's author. Failures
// are logged; the triggering write already succeeded.
func (s *Server) notifyPostOwner(
	r *http.Request,
	kind models.NotificationKind,
	actorID string,
	postID string,
	preview string,
) {
	authorID, err := s.store.GetPostAuthorID(r.Context(), postID)
	if err != nil {
		log.Errorf("Error resolving post author for notification: %v", err)
		return
	}
	oid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return
	}
	_, _, err = s.store.Notify(r.Context(), models.Event{
		Kind:    kind,
		ActorID: actorID,
		OwnerID: authorID,
		PostID:  oid,
		Preview: preview,
	})
	if err != nil {
		log.Errorf("Error creating %s notification: %v", kind, err)
	}
}

func contains(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
