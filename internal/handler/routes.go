package handler

import (
	"github.com/go-chi/chi/v5"

	"github.com/chatsync/internal/engine"
)

// API: обработчики /api, собранные вокруг одного реестра движков.
type API struct {
	Chats    *ChatHandler
	Messages *MessageHandler
	Overlay  *OverlayHandler
	Settings *SettingsHandler
}

func NewAPI(reg *engine.Registry) API {
	return API{
		Chats:    NewChatHandler(reg),
		Messages: NewMessageHandler(reg),
		Overlay:  NewOverlayHandler(reg),
		Settings: NewSettingsHandler(reg),
	}
}

// Mount регистрирует маршруты; пользователь уже в контексте (middleware.Identity).
func (a API) Mount(r chi.Router) {
	r.Get("/chats", a.Chats.List)
	r.Post("/locked-view", a.Chats.ToggleLockedView)
	r.Get("/drafts", a.Overlay.Drafts)

	r.Route("/chats/{id}", func(r chi.Router) {
		r.Get("/messages", a.Chats.Messages)
		r.Get("/media", a.Chats.Media)
		r.Get("/permissions", a.Chats.Permissions)
		r.Post("/lock", a.Chats.ToggleLock)
		r.Post("/vanish", a.Chats.ToggleVanish)
		r.Post("/daily-lock", a.Chats.DailyLock)
		r.Post("/clear", a.Chats.Clear)
		r.Post("/theme", a.Chats.Theme)
		r.Post("/leave", a.Chats.Leave)

		r.Post("/messages", a.Messages.Send)
		r.Post("/messages/delete", a.Messages.DeleteMany)
		r.Post("/polls", a.Messages.CreatePoll)
		r.Route("/messages/{mid}", func(r chi.Router) {
			r.Put("/", a.Messages.Edit)
			r.Delete("/", a.Messages.Delete)
			r.Post("/retry", a.Messages.Retry)
			r.Post("/reactions", a.Messages.React)
			r.Delete("/reactions/{emoji}", a.Messages.Unreact)
			r.Post("/votes", a.Messages.Vote)
			for _, flag := range []string{"pin", "bookmark", "unread"} {
				r.Put("/"+flag, a.Messages.Flag(flag, true))
				r.Delete("/"+flag, a.Messages.Flag(flag, false))
			}
		})

		r.Get("/selection", a.Overlay.Selection)
		r.Post("/selection", a.Overlay.EnterSelection)
		r.Post("/selection/toggle", a.Overlay.ToggleSelection)
		r.Delete("/selection", a.Overlay.ExitSelection)
		r.Get("/compose", a.Overlay.Compose)
		r.Put("/reply", a.Overlay.StartReply)
		r.Delete("/reply", a.Overlay.CancelReply)
		r.Put("/edit", a.Overlay.StartEdit)
		r.Delete("/edit", a.Overlay.CancelEdit)
		r.Put("/draft", a.Overlay.SaveDraft)
		r.Delete("/draft", a.Overlay.ClearDraft)
	})

	r.Get("/settings", a.Settings.Get)
	r.Put("/settings", a.Settings.Update)
	r.Post("/settings/passcode", a.Settings.ChangePasscode)
}
