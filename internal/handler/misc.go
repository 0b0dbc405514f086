package handler

import (
	"net/http"
)

// MapsConfig отдаёт публичный JS-ключ Kakao Maps для фронтенда.
// REST-ключ наружу не уходит.
func MapsConfig(kakaoMapAppKey string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if kakaoMapAppKey == "" {
			writeError(w, http.StatusServiceUnavailable, "maps key is not configured")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"kakao_map_app_key": kakaoMapAppKey})
	}
}

func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
