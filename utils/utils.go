package utils

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

func IntFromString(s string, defaultValue int) int {
	atoi, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return atoi
}

func ToJson(value any) []byte {
	jsonResp, err := json.Marshal(value)
	if err != nil {
		log.Errorf("Error happened in JSON marshal. Err: %s", err)
	}
	return jsonResp
}

func Recoverer(maxPanics, id int, f func()) {
	defer func() {
		if err := recover(); err != nil {
			log.Errorf("Recovered %v: %v", id, err)
			if maxPanics == 0 {
				panic("TOO MANY PANICS")
			} else {
				go Recoverer(maxPanics-1, id, f)
			}
		}
	}()
	f()
}

// Retry runs f up to attempts times, doubling the wait between tries.
// It stops early when f succeeds, when retryable reports the error as
// terminal, or when ctx is done. Indefinite blocking is not an option here;
// the caller always gets an answer within attempts * backoff bounds.
func Retry(
	ctx context.Context,
	attempts int,
	backoff time.Duration,
	retryable func(error) bool,
	f func() error,
) error {
	var err error
	wait := backoff
	for i := 0; i < attempts; i++ {
		if err = f(); err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
		wait *= 2
	}
	return err
}
