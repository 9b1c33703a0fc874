package server

import (
	"net/http"
	"net/url"

	log "github.com/sirupsen/logrus"

	"campusfeed/storage"
	"campusfeed/utils"
)

func sendError(w http.ResponseWriter, errorCode int, message string) {
	log.Info(message)
	w.WriteHeader(errorCode)
	resp := map[string]string{
		"error": message,
	}
	jsonResp := utils.ToJson(resp)
	w.Write(jsonResp)
}

// sendStoreError maps the storage error taxonomy onto HTTP status codes.
func sendStoreError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch storage.KindOf(err) {
	case storage.KindValidation:
		status = http.StatusBadRequest
	case storage.KindNotFound:
		status = http.StatusNotFound
	case storage.KindConflict:
		status = http.StatusConflict
	case storage.KindTransient:
		status = http.StatusServiceUnavailable
	}
	sendError(w, status, err.Error())
}

func getQueryItem(values url.Values, key string) *string {
	value := values[key]
	result := ""
	if len(value) == 1 {
		result = value[0]
	}
	return &result
}

func sendJson(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(utils.ToJson(body))
}
