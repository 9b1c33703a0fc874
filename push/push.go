package push

import (
	"context"
	"net/http"
	"os"

	webpush "github.com/SherClockHolmes/webpush-go"
	log "github.com/sirupsen/logrus"

	"campusfeed/storage"
)

// Sender delivers notification payloads to a user's registered browser push
// endpoints. Endpoints that the push service reports gone are pruned.
type Sender struct {
	store           *storage.Manager
	vapidPublicKey  string
	vapidPrivateKey string
	subscriber      string
}

func NewSender(store *storage.Manager) *Sender {
	publicKey := os.Getenv("VAPID_PUBLIC_KEY")
	privateKey := os.Getenv("VAPID_PRIVATE_KEY")
	if publicKey == "" || privateKey == "" {
		generatedPrivate, generatedPublic, err := webpush.GenerateVAPIDKeys()
		if err != nil {
			log.Errorf("Error generating VAPID keys: %v", err)
		} else {
			log.Warning("Generated ephemeral VAPID keys; set VAPID_PUBLIC_KEY/VAPID_PRIVATE_KEY for stable push delivery")
			publicKey, privateKey = generatedPublic, generatedPrivate
		}
	}

	return &Sender{
		store:           store,
		vapidPublicKey:  publicKey,
		vapidPrivateKey: privateKey,
		subscriber:      os.Getenv("VAPID_SUBSCRIBER"),
	}
}

func (s *Sender) PublicKey() string {
	return s.vapidPublicKey
}

// Send pushes payload to every endpoint the user registered. Failures on
// one endpoint do not stop the others.
func (s *Sender) Send(ctx context.Context, userID string, payload []byte) {
	subs, err := s.store.GetPushSubscriptions(ctx, userID)
	if err != nil {
		log.Errorf("Error loading push subscriptions for %s: %v", userID, err)
		return
	}

	for _, sub := range subs {
		resp, err := webpush.SendNotification(payload, &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys: webpush.Keys{
				P256dh: sub.P256dh,
				Auth:   sub.Auth,
			},
		}, &webpush.Options{
			Subscriber:      s.subscriber,
			VAPIDPublicKey:  s.vapidPublicKey,
			VAPIDPrivateKey: s.vapidPrivateKey,
			TTL:             60,
		})
		if err != nil {
			log.Errorf("Error pushing to %s: %v", sub.Endpoint, err)
			continue
		}
		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
			if err := s.store.DeletePushSubscription(ctx, userID, sub.Endpoint); err != nil {
				log.Errorf("Error pruning dead push subscription: %v", err)
			}
		}
		resp.Body.Close()
	}
}
