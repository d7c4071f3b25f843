package api

import "net/http"

// Info handles GET /info.
func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	me, err := a.bot.GetMe(r.Context())
	if err != nil {
		mapError(w, err)
		return
	}
	hook, err := a.bot.GetWebhookInfo(r.Context())
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, InfoResponse{
		Version:         Version,
		TelegramBot:     *me,
		TelegramWebhook: *hook,
	})
}
